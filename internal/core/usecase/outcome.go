package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
	"github.com/kirillkom/scan-organizer/internal/core/ports"
)

// Recorders fans a record out to every recorder. All recorders are called
// even when one fails; the errors are joined.
type Recorders []ports.OutcomeRecorder

func (rs Recorders) Record(ctx context.Context, record domain.OutcomeRecord) error {
	var errs []error
	for _, r := range rs {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Summary tallies outcomes for the end-of-run report.
type Summary struct {
	Processed int
	Organized int
	Failed    int
	Skipped   int
	Records   []domain.OutcomeRecord
}

// SummaryRecorder accumulates a Summary across concurrent workers.
type SummaryRecorder struct {
	mu          sync.Mutex
	summary     Summary
	keepRecords bool
}

func NewSummaryRecorder(keepRecords bool) *SummaryRecorder {
	return &SummaryRecorder{keepRecords: keepRecords}
}

func (s *SummaryRecorder) Record(_ context.Context, record domain.OutcomeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summary.Processed++
	if record.Success {
		s.summary.Organized++
	} else {
		s.summary.Failed++
	}
	if s.keepRecords {
		s.summary.Records = append(s.summary.Records, record)
	}
	return nil
}

// Skip counts a candidate that was dropped before entering the pipeline.
func (s *SummaryRecorder) Skip() {
	s.mu.Lock()
	s.summary.Skipped++
	s.mu.Unlock()
}

func (s *SummaryRecorder) Snapshot() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.summary
	out.Records = append([]domain.OutcomeRecord(nil), s.summary.Records...)
	return out
}
