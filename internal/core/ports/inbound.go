package ports

import (
	"context"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

// CandidateProcessor is the inbound contract for running one candidate
// through the intake pipeline. It never returns an error: the outcome record
// carries success or failure.
type CandidateProcessor interface {
	Process(ctx context.Context, candidate domain.ScanCandidate) domain.OutcomeRecord
}

// DocumentClassifier produces a classification for extracted text. It
// degrades instead of failing.
type DocumentClassifier interface {
	Classify(ctx context.Context, req domain.ClassifyRequest) domain.ClassificationResult
}
