package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
	"github.com/kirillkom/scan-organizer/internal/core/ports"
)

const DefaultRetryDelay = 2 * time.Second

type ProcessOptions struct {
	Root       string
	RetryDelay time.Duration
	Logger     *slog.Logger
	Recorder   ports.OutcomeRecorder
	Now        func() time.Time
}

// ProcessCandidateUseCase drives one candidate through extraction,
// classification, naming and placement. Stage order is fixed; any failure
// leaves the source file where it was.
type ProcessCandidateUseCase struct {
	extractor  ports.TextExtractor
	classifier ports.DocumentClassifier
	namer      ports.Namer
	organizer  ports.Organizer
	root       string
	retryDelay time.Duration
	logger     *slog.Logger
	recorder   ports.OutcomeRecorder
	now        func() time.Time
}

func NewProcessCandidateUseCase(
	extractor ports.TextExtractor,
	classifier ports.DocumentClassifier,
	namer ports.Namer,
	organizer ports.Organizer,
	options ProcessOptions,
) *ProcessCandidateUseCase {
	retryDelay := options.RetryDelay
	if retryDelay < 0 {
		retryDelay = 0
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := options.Now
	if now == nil {
		now = time.Now
	}
	return &ProcessCandidateUseCase{
		extractor:  extractor,
		classifier: classifier,
		namer:      namer,
		organizer:  organizer,
		root:       options.Root,
		retryDelay: retryDelay,
		logger:     logger,
		recorder:   options.Recorder,
		now:        now,
	}
}

func (uc *ProcessCandidateUseCase) Process(ctx context.Context, candidate domain.ScanCandidate) domain.OutcomeRecord {
	record := domain.OutcomeRecord{
		ID:        uuid.NewString(),
		Candidate: candidate,
		Stage:     domain.StageDetected,
		Attempts:  1,
		StartedAt: uc.now(),
	}
	logger := uc.logger.With("record_id", record.ID, "file", candidate.Path)
	logger.Info("pipeline_stage", "stage", record.Stage)

	uc.advance(logger, &record, domain.StageExtracting)
	extracted, err := uc.extract(ctx, logger, &record, candidate)
	if err != nil {
		return uc.fail(ctx, logger, record, err)
	}
	record.Extracted = &extracted
	if extracted.Truncated {
		logger.Info("extraction_truncated", "pages", extracted.PageCount)
	}

	uc.advance(logger, &record, domain.StageClassifying)
	result := uc.classifier.Classify(ctx, domain.ClassifyRequest{
		Text:      extracted.Text,
		Filename:  candidate.Filename(),
		Extension: candidate.Extension,
	})
	record.Classification = &result
	logger.Info("classified",
		"category", result.Category,
		"description", result.Description,
		"confidence", result.Confidence,
		"source", result.Source,
	)

	uc.advance(logger, &record, domain.StageNaming)
	target := uc.namer.BuildTarget(result, candidate.DetectedAt, candidate.Extension)

	uc.advance(logger, &record, domain.StagePlacing)
	destination, err := uc.place(ctx, logger, &record, candidate, target)
	if err != nil {
		return uc.fail(ctx, logger, record, err)
	}
	record.Destination = destination

	record.Stage = domain.StageDone
	record.Success = true
	record.FinishedAt = uc.now()
	logger.Info("pipeline_done",
		"destination", destination,
		"duration_ms", record.Duration().Milliseconds(),
	)
	uc.record(ctx, logger, record)
	return record
}

func (uc *ProcessCandidateUseCase) extract(ctx context.Context, logger *slog.Logger, record *domain.OutcomeRecord, candidate domain.ScanCandidate) (domain.ExtractedText, error) {
	if !domain.IsSupportedExtension(candidate.Extension) {
		return domain.ExtractedText{}, domain.WrapError(domain.ErrUnsupportedFormat, "extract", fmt.Errorf("extension %q", candidate.Extension))
	}

	extracted, err := uc.extractor.Extract(ctx, candidate.Path)
	if err == nil || domain.IsKind(err, domain.ErrUnsupportedFormat) || domain.IsKind(err, domain.ErrSourceMissing) {
		return extracted, err
	}

	logger.Warn("stage_retry", "stage", domain.StageExtracting, "delay_ms", uc.retryDelay.Milliseconds(), "error", err)
	if waitErr := sleepContext(ctx, uc.retryDelay); waitErr != nil {
		return domain.ExtractedText{}, retryAborted(err, waitErr)
	}
	record.Attempts++
	return uc.extractor.Extract(ctx, candidate.Path)
}

func (uc *ProcessCandidateUseCase) place(ctx context.Context, logger *slog.Logger, record *domain.OutcomeRecord, candidate domain.ScanCandidate, target domain.TargetName) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", domain.WrapError(domain.ErrOrganize, "place", err)
	}

	destination, err := uc.organizer.Place(ctx, candidate.Path, target, uc.root)
	if err == nil || domain.IsKind(err, domain.ErrSourceMissing) {
		return destination, err
	}

	logger.Warn("stage_retry", "stage", domain.StagePlacing, "delay_ms", uc.retryDelay.Milliseconds(), "error", err)
	if waitErr := sleepContext(ctx, uc.retryDelay); waitErr != nil {
		return "", retryAborted(err, waitErr)
	}
	record.Attempts++
	return uc.organizer.Place(ctx, candidate.Path, target, uc.root)
}

func (uc *ProcessCandidateUseCase) advance(logger *slog.Logger, record *domain.OutcomeRecord, stage domain.Stage) {
	record.Stage = stage
	logger.Debug("pipeline_stage", "stage", stage)
}

func (uc *ProcessCandidateUseCase) fail(ctx context.Context, logger *slog.Logger, record domain.OutcomeRecord, err error) domain.OutcomeRecord {
	logger.Error("pipeline_failed", "stage", record.Stage, "attempts", record.Attempts, "error", err)
	record.FailedStage = record.Stage
	record.Stage = domain.StageFailed
	record.Success = false
	record.Error = err.Error()
	record.FinishedAt = uc.now()
	uc.record(ctx, logger, record)
	return record
}

func (uc *ProcessCandidateUseCase) record(ctx context.Context, logger *slog.Logger, record domain.OutcomeRecord) {
	if uc.recorder == nil {
		return
	}
	if err := uc.recorder.Record(context.WithoutCancel(ctx), record); err != nil {
		logger.Warn("outcome_record_failed", "error", err)
	}
}

// retryAborted keeps the first attempt's error kind and notes why the retry
// never ran.
func retryAborted(err, waitErr error) error {
	return fmt.Errorf("%w (retry aborted: %v)", err, waitErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
