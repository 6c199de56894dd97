// Package nats publishes pipeline outcome records to a NATS subject and
// follows them from other processes.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/resilience"
)

const DefaultSubject = "scans.outcomes"

type Publisher struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	logger   *slog.Logger
	publish  func(subject string, data []byte) error
	timeout  time.Duration
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url, subject string) (*Publisher, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Publisher, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if subject == "" {
		subject = DefaultSubject
	}

	conn, err := nats.Connect(
		url,
		nats.Name("scan-organizer"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	p := newPublisher(subject, options.ResilienceExecutor, logger, conn.Publish)
	p.conn = conn
	p.timeout = connectTimeout
	return p, nil
}

// Ping reports whether the server is reachable right now. With
// RetryOnFailedConnect the connection can exist while the server is down,
// so a successful NewWithOptions alone proves nothing.
func (p *Publisher) Ping() error {
	if p.conn == nil {
		return domain.WrapError(domain.ErrTemporary, "nats ping", nats.ErrConnectionClosed)
	}
	if !p.conn.IsConnected() {
		return domain.WrapError(domain.ErrTemporary, "nats ping", fmt.Errorf("connection %s", p.conn.Status()))
	}
	if err := p.conn.FlushTimeout(p.timeout); err != nil {
		return domain.WrapError(domain.ErrTemporary, "nats ping", err)
	}
	return nil
}

func newPublisher(subject string, executor *resilience.Executor, logger *slog.Logger, publish func(string, []byte) error) *Publisher {
	return &Publisher{subject: subject, executor: executor, logger: logger, publish: publish}
}

func (p *Publisher) Close() {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
		}
	}
}

// Record publishes record as JSON. It implements ports.OutcomeRecorder.
func (p *Publisher) Record(ctx context.Context, record domain.OutcomeRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	call := func(_ context.Context) error {
		if err := p.publish(p.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if p.executor != nil {
		err = p.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// Follow delivers every outcome published on the subject to handler until
// ctx is cancelled.
func (p *Publisher) Follow(ctx context.Context, handler func(context.Context, domain.OutcomeRecord) error) error {
	sub, err := p.conn.Subscribe(p.subject, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		var record domain.OutcomeRecord
		if err := json.Unmarshal(msg.Data, &record); err != nil {
			p.logger.Warn("nats_outcome_decode_failed", "error", err)
			return
		}
		if err := handler(ctx, record); err != nil {
			p.logger.Warn("nats_outcome_handler_failed", "record_id", record.ID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := p.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	return nil
}
