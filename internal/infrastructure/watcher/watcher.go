package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

const DefaultDebounce = 2 * time.Second

// Watcher follows create, rename and write events in root. Each event
// re-arms a per-path timer; the file becomes a candidate once it has been
// quiet for the debounce window.
type Watcher struct {
	root     string
	debounce time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
	ready   chan struct{}
}

func NewWatcher(root string, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{root: root, debounce: debounce, logger: logger, now: time.Now, ready: make(chan struct{})}
}

// Ready is closed once the current (or next) Feed has registered the watch.
func (w *Watcher) Ready() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ready
}

// Feed watches until ctx is cancelled. It returns nil on cancellation and an
// error only when the watch cannot be set up or the backend fails. Feed may
// be called again after it returns, but not concurrently.
func (w *Watcher) Feed(ctx context.Context, out chan<- domain.ScanCandidate) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("watcher already running")
	}
	w.running = true
	ready := w.ready
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		select {
		case <-ready:
			w.ready = make(chan struct{})
		default:
		}
		w.mu.Unlock()
	}()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.root); err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	close(ready)
	w.logger.Info("watch_started", "folder", w.root, "debounce_ms", w.debounce.Milliseconds())

	ctx, cancel := context.WithCancel(ctx)
	var (
		mu     sync.Mutex
		closed bool
		fires  sync.WaitGroup
		timers = make(map[string]*time.Timer)
	)
	// Pending timers are stopped and running ones drained before Feed
	// returns, so nothing is sent on out after the caller closes it.
	defer func() {
		mu.Lock()
		closed = true
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
		cancel()
		fires.Wait()
	}()

	fire := func(path string) {
		mu.Lock()
		delete(timers, path)
		if closed {
			mu.Unlock()
			return
		}
		fires.Add(1)
		mu.Unlock()
		defer fires.Done()

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() || ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
		case out <- domain.NewScanCandidate(path, w.now()):
			w.logger.Debug("watch_candidate", "file", path)
		}
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch_stopped", "folder", w.root)
			return nil
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch_error", "error", err)
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			path := filepath.Clean(event.Name)
			if !Eligible(w.root, path) {
				continue
			}
			mu.Lock()
			if t, ok := timers[path]; ok {
				t.Reset(w.debounce)
			} else {
				timers[path] = time.AfterFunc(w.debounce, func() { fire(path) })
			}
			mu.Unlock()
		}
	}
}
