package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
	"github.com/kirillkom/scan-organizer/internal/core/ports"
)

// NewSource builds the candidate source for mode. In "both" mode the watch is
// registered before the initial scan so files arriving during the scan are
// not missed; the dispatcher's in-flight set absorbs the overlap.
func NewSource(mode domain.RunMode, root string, debounce time.Duration, logger *slog.Logger) ports.CandidateSource {
	switch mode {
	case domain.ModeWatch:
		return NewWatcher(root, debounce, logger)
	case domain.ModeBoth:
		return &combined{scanner: NewScanner(root, logger), watcher: NewWatcher(root, debounce, logger)}
	default:
		return NewScanner(root, logger)
	}
}

type combined struct {
	scanner *Scanner
	watcher *Watcher
}

func (c *combined) Feed(ctx context.Context, out chan<- domain.ScanCandidate) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- c.watcher.Feed(ctx, out) }()

	select {
	case <-c.watcher.Ready():
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return <-errCh
	}

	if err := c.scanner.Feed(ctx, out); err != nil {
		cancel()
		<-errCh
		return err
	}
	return <-errCh
}
