package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

// Scanner lists the immediate children of root once.
type Scanner struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
}

func NewScanner(root string, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{root: root, logger: logger, now: time.Now}
}

// Scan returns candidates sorted by path. Subfolders, including category
// folders from earlier runs, are not descended into.
func (s *Scanner) Scan(ctx context.Context) ([]domain.ScanCandidate, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read scan folder: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(s.root, entry.Name())
		if !Eligible(s.root, path) {
			s.logger.Debug("scan_skipped", "file", path)
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)

	detectedAt := s.now()
	out := make([]domain.ScanCandidate, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, domain.NewScanCandidate(path, detectedAt))
	}
	return out, nil
}

// Feed sends every scanned candidate to out.
func (s *Scanner) Feed(ctx context.Context, out chan<- domain.ScanCandidate) error {
	candidates, err := s.Scan(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	s.logger.Info("scan_complete", "folder", s.root, "candidates", len(candidates))
	for _, c := range candidates {
		select {
		case <-ctx.Done():
			return nil
		case out <- c:
		}
	}
	return nil
}
