// Package bootstrap wires configuration into the pipeline components.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/kirillkom/scan-organizer/internal/config"
	"github.com/kirillkom/scan-organizer/internal/core/domain"
	"github.com/kirillkom/scan-organizer/internal/core/naming"
	"github.com/kirillkom/scan-organizer/internal/core/ports"
	"github.com/kirillkom/scan-organizer/internal/core/usecase"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/classifier/keyword"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/extractor/ocr"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/organizer/localfs"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/queue/nats"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/resilience"
	"github.com/kirillkom/scan-organizer/internal/infrastructure/watcher"
	"github.com/kirillkom/scan-organizer/internal/observability/metrics"
)

const ServiceName = "scan-organizer"

type App struct {
	Config config.Config
	Logger *slog.Logger

	Extractor  ports.TextExtractor
	Classifier ports.DocumentClassifier
	Organizer  ports.Organizer
	Namer      ports.Namer
	Metrics    *metrics.PipelineMetrics
	Provider   string

	recorders usecase.Recorders
	closeFns  []func()
}

type Options struct {
	// Extractor replaces the OCR extractor and skips its startup check.
	Extractor ports.TextExtractor
	// Remote replaces the configured remote classifier.
	Remote ports.RemoteClassifier
}

// New builds the pipeline. A missing OCR engine is returned as an error
// wrapping domain.ErrExtractorUnavailable; optional sinks (journal, event
// bus) fail startup only when configured and unreachable.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}

	extractor := opts.Extractor
	if extractor == nil {
		ocrExtractor := newOCR(cfg, logger)
		if err := ocrExtractor.Check(ctx); err != nil {
			return nil, err
		}
		extractor = ocrExtractor
	}
	app.Extractor = extractor

	rules := keyword.DefaultRules()
	if cfg.KeywordRulesFile != "" {
		loaded, err := keyword.LoadRules(cfg.KeywordRulesFile)
		if err != nil {
			return nil, err
		}
		rules = loaded
	}

	remote := opts.Remote
	if remote == nil {
		built, provider, err := newRemoteClassifier(cfg, logger)
		if err != nil {
			return nil, err
		}
		remote, app.Provider = built, provider
	} else {
		app.Provider = "custom"
	}
	if remote != nil {
		logger.Info("classifier_enabled", "provider", app.Provider)
	} else {
		logger.Info("classifier_keyword_only")
	}

	app.Metrics = metrics.NewPipelineMetrics(ServiceName)
	app.Classifier = usecase.NewClassifyDocumentUseCase(remote, keyword.New(rules, cfg.NameMaxLen), usecase.ClassifyOptions{
		MinConfidence: cfg.ClassifierMinConfidence,
		MaxSlugLen:    cfg.NameMaxLen,
		Logger:        logger,
		Observer:      app.Metrics,
	})
	app.Namer = naming.NewNamer(cfg.NameMaxLen)
	app.Organizer = localfs.New()
	app.recorders = usecase.Recorders{app.Metrics}

	if cfg.PostgresDSN != "" {
		journal, db, err := OpenJournal(ctx, cfg)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.recorders = append(app.recorders, journal)
		app.closeFns = append(app.closeFns, func() { _ = db.Close() })
	}
	if cfg.NATSURL != "" {
		publisher, err := OpenPublisher(cfg, logger)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.recorders = append(app.recorders, publisher)
		app.closeFns = append(app.closeFns, publisher.Close)
	}
	return app, nil
}

func newOCR(cfg config.Config, logger *slog.Logger) *ocr.Extractor {
	return ocr.New(ocr.Config{
		TesseractPath: cfg.TesseractPath,
		PdftoppmPath:  cfg.PdftoppmPath,
		Language:      cfg.OCRLanguage,
		DPI:           cfg.OCRDPI,
		PageCap:       cfg.PageCap,
		MaxImageWidth: cfg.OCRMaxImageWidth,
		TextLayer:     cfg.PDFTextLayer,
	}, ocr.ExecRunner{}, logger)
}

// OpenJournal connects to PostgreSQL and makes sure the outcomes table
// exists. The caller closes the returned DB.
func OpenJournal(ctx context.Context, cfg config.Config) (*postgres.OutcomeRepository, *sql.DB, error) {
	db, err := postgres.OpenDB(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewOutcomeRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, db, nil
}

// OpenPublisher connects to NATS and fails when the server does not answer.
// Once connected, later outages are ridden out by reconnecting.
func OpenPublisher(cfg config.Config, logger *slog.Logger) (*nats.Publisher, error) {
	executor := resilience.NewExecutorWithLogger(resilience.Config{
		RetryMaxAttempts: 3,
		BreakerEnabled:   true,
	}, logger)
	retryOnFailedConnect := false
	publisher, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		RetryOnFailedConnect: &retryOnFailedConnect,
		ResilienceExecutor:   executor,
		Logger:               logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init outcome publisher: %w", err)
	}
	if err := publisher.Ping(); err != nil {
		publisher.Close()
		return nil, fmt.Errorf("init outcome publisher: %w", err)
	}
	return publisher, nil
}

type RunOptions struct {
	KeepRecords bool
}

// Run processes the folder in the given mode and returns the run summary.
// One-shot runs return when every candidate is finished; continuous runs
// return after ctx is cancelled and in-flight work has drained.
func (a *App) Run(ctx context.Context, folder string, mode domain.RunMode, opts RunOptions) (usecase.Summary, error) {
	info, err := os.Stat(folder)
	if err != nil {
		return usecase.Summary{}, domain.WrapError(domain.ErrInvalidInput, "scan folder", err)
	}
	if !info.IsDir() {
		return usecase.Summary{}, domain.WrapError(domain.ErrInvalidInput, "scan folder", fmt.Errorf("%s is not a directory", folder))
	}

	summary := usecase.NewSummaryRecorder(opts.KeepRecords)
	recorders := append(usecase.Recorders{summary}, a.recorders...)

	processor := usecase.NewProcessCandidateUseCase(a.Extractor, a.Classifier, a.Namer, a.Organizer, usecase.ProcessOptions{
		Root:       folder,
		RetryDelay: a.Config.RetryDelay,
		Logger:     a.Logger,
		Recorder:   recorders,
	})
	dispatcher := usecase.NewDispatcher(processor, usecase.DispatchOptions{
		Workers:        a.Config.Workers,
		ProcessTimeout: a.Config.ProcessTimeout,
		ShutdownGrace:  a.Config.ShutdownGrace,
		Logger:         a.Logger,
		Observer:       a.Metrics,
		Summary:        summary,
	})

	if a.Config.MetricsPort != "" {
		metricsCtx, stopMetrics := context.WithCancel(ctx)
		defer stopMetrics()
		go func() {
			addr := net.JoinHostPort("", a.Config.MetricsPort)
			if err := metrics.Serve(metricsCtx, addr, a.Metrics.Handler(), a.Logger); err != nil {
				a.Logger.Error("metrics_server_failed", "error", err)
			}
		}()
	}

	a.Logger.Info("run_started", "folder", folder, "mode", mode, "workers", a.Config.Workers)

	queue := make(chan domain.ScanCandidate, max(a.Config.Workers, 1)*4)
	source := watcher.NewSource(mode, folder, a.Config.Debounce, a.Logger)
	feedErr := make(chan error, 1)
	go func() {
		err := source.Feed(ctx, queue)
		close(queue)
		feedErr <- err
	}()

	if err := dispatcher.Run(ctx, queue); err != nil {
		return summary.Snapshot(), err
	}
	err = <-feedErr

	result := summary.Snapshot()
	a.Logger.Info("run_finished",
		"processed", result.Processed,
		"organized", result.Organized,
		"failed", result.Failed,
		"skipped", result.Skipped,
	)
	return result, err
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
