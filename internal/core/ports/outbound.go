package ports

import (
	"context"
	"time"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

// TextExtractor turns a scanned file into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (domain.ExtractedText, error)
}

// RemoteClassifier calls an AI collaborator. Any error means the service is
// unavailable for this call.
type RemoteClassifier interface {
	Classify(ctx context.Context, req domain.ClassifyRequest) (domain.ClassificationResult, error)
}

// RuleClassifier is the deterministic keyword fallback.
type RuleClassifier interface {
	Classify(req domain.ClassifyRequest) domain.ClassificationResult
}

// Namer builds the canonical target name for a classified file.
type Namer interface {
	BuildTarget(result domain.ClassificationResult, scanDate time.Time, ext string) domain.TargetName
}

// Organizer moves a file under root into its category folder without ever
// overwriting an existing file. It returns the final destination path.
type Organizer interface {
	Place(ctx context.Context, sourcePath string, target domain.TargetName, root string) (string, error)
}

// OutcomeRecorder receives terminal outcome records (logs, metrics, journal,
// event bus, report).
type OutcomeRecorder interface {
	Record(ctx context.Context, record domain.OutcomeRecord) error
}

// CandidateSource produces candidates into out until it finishes or ctx is
// cancelled. Sources never close out.
type CandidateSource interface {
	Feed(ctx context.Context, out chan<- domain.ScanCandidate) error
}
