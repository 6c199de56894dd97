package usecase

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
	"github.com/kirillkom/scan-organizer/internal/core/ports"
)

const (
	DefaultWorkers        = 3
	DefaultProcessTimeout = 300 * time.Second
	DefaultShutdownGrace  = 30 * time.Second
)

// DispatchObserver receives worker pool measurements.
type DispatchObserver interface {
	ObserveQueueLag(lag time.Duration)
	ObserveInFlight(delta int)
}

type DispatchOptions struct {
	Workers        int
	ProcessTimeout time.Duration
	ShutdownGrace  time.Duration
	Logger         *slog.Logger
	Observer       DispatchObserver
	Summary        *SummaryRecorder
	Stat           func(path string) (fs.FileInfo, error)
	Now            func() time.Time
}

type fileSignature struct {
	size    int64
	modTime time.Time
}

// Dispatcher runs a bounded pool of workers over a candidate channel. A path
// is never processed by two workers at once, and a path that failed is not
// retried in the same run unless the file changed.
type Dispatcher struct {
	processor ports.CandidateProcessor
	options   DispatchOptions
	logger    *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
	failed   map[string]fileSignature
}

func NewDispatcher(processor ports.CandidateProcessor, options DispatchOptions) *Dispatcher {
	if options.Workers <= 0 {
		options.Workers = DefaultWorkers
	}
	if options.ProcessTimeout <= 0 {
		options.ProcessTimeout = DefaultProcessTimeout
	}
	if options.ShutdownGrace <= 0 {
		options.ShutdownGrace = DefaultShutdownGrace
	}
	if options.Stat == nil {
		options.Stat = os.Stat
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		processor: processor,
		options:   options,
		logger:    logger,
		inFlight:  make(map[string]struct{}),
		failed:    make(map[string]fileSignature),
	}
}

// Run consumes candidates until in is closed or ctx is cancelled, then waits
// for in-flight executions. After cancellation running executions get
// ShutdownGrace to finish before their context is cancelled too.
func (d *Dispatcher) Run(ctx context.Context, in <-chan domain.ScanCandidate) error {
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-done:
			return
		case <-ctx.Done():
		}
		timer := time.NewTimer(d.options.ShutdownGrace)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			d.logger.Warn("shutdown_grace_expired", "grace_ms", d.options.ShutdownGrace.Milliseconds())
			cancelWork()
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < d.options.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			d.worker(ctx, workCtx, worker, in)
		}(i + 1)
	}
	wg.Wait()

	if ctx.Err() != nil {
		d.logger.Info("dispatcher_stopped", "reason", ctx.Err())
	}
	return nil
}

func (d *Dispatcher) worker(ctx, workCtx context.Context, worker int, in <-chan domain.ScanCandidate) {
	for {
		select {
		case <-ctx.Done():
			return
		case candidate, ok := <-in:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			d.handle(workCtx, worker, candidate)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, worker int, candidate domain.ScanCandidate) {
	logger := d.logger.With("worker", worker, "file", candidate.Path)

	if !d.acquire(candidate.Path) {
		logger.Debug("candidate_skipped", "reason", "in_flight")
		d.skip()
		return
	}
	defer d.release(candidate.Path)

	info, err := d.options.Stat(candidate.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("candidate_skipped", "reason", "vanished")
		} else {
			logger.Warn("candidate_skipped", "reason", "stat_failed", "error", err)
		}
		d.skip()
		return
	}
	if !info.Mode().IsRegular() {
		logger.Debug("candidate_skipped", "reason", "not_regular")
		d.skip()
		return
	}
	signature := fileSignature{size: info.Size(), modTime: info.ModTime()}
	if d.failedBefore(candidate.Path, signature) {
		logger.Debug("candidate_skipped", "reason", "failed_unchanged")
		d.skip()
		return
	}

	if d.options.Observer != nil {
		d.options.Observer.ObserveQueueLag(d.options.Now().Sub(candidate.DetectedAt))
		d.options.Observer.ObserveInFlight(1)
		defer d.options.Observer.ObserveInFlight(-1)
	}

	execCtx, cancel := context.WithTimeout(ctx, d.options.ProcessTimeout)
	defer cancel()
	record := d.processor.Process(execCtx, candidate)

	d.mu.Lock()
	if record.Success {
		delete(d.failed, candidate.Path)
	} else {
		d.failed[candidate.Path] = signature
	}
	d.mu.Unlock()
}

func (d *Dispatcher) acquire(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inFlight[path]; busy {
		return false
	}
	d.inFlight[path] = struct{}{}
	return true
}

func (d *Dispatcher) release(path string) {
	d.mu.Lock()
	delete(d.inFlight, path)
	d.mu.Unlock()
}

func (d *Dispatcher) failedBefore(path string, signature fileSignature) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	prev, ok := d.failed[path]
	return ok && prev.size == signature.size && prev.modTime.Equal(signature.modTime)
}

func (d *Dispatcher) skip() {
	if d.options.Summary != nil {
		d.options.Summary.Skip()
	}
}
