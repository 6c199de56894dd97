package usecase

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
	"github.com/kirillkom/scan-organizer/internal/core/naming"
	"github.com/kirillkom/scan-organizer/internal/core/ports"
)

// ClassifyObserver is notified of which source produced each classification
// and of every fallback from the remote classifier.
type ClassifyObserver interface {
	ObserveClassification(source domain.ClassificationSource)
	ObserveFallback(reason string)
}

type ClassifyOptions struct {
	// MinConfidence collapses AI results below the threshold to Other.
	// Zero disables the gate.
	MinConfidence float64
	MaxSlugLen    int
	Logger        *slog.Logger
	Observer      ClassifyObserver
}

// ClassifyDocumentUseCase runs the classification policy: empty images go
// straight to Pictures, otherwise the remote classifier is tried and any
// failure falls back to keyword rules for that file only.
type ClassifyDocumentUseCase struct {
	remote   ports.RemoteClassifier
	rules    ports.RuleClassifier
	options  ClassifyOptions
	logger   *slog.Logger
	observer ClassifyObserver
}

func NewClassifyDocumentUseCase(remote ports.RemoteClassifier, rules ports.RuleClassifier, options ClassifyOptions) *ClassifyDocumentUseCase {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if options.MaxSlugLen <= 0 {
		options.MaxSlugLen = naming.DefaultMaxSlugLen
	}
	return &ClassifyDocumentUseCase{
		remote:   remote,
		rules:    rules,
		options:  options,
		logger:   logger,
		observer: options.Observer,
	}
}

func (uc *ClassifyDocumentUseCase) Classify(ctx context.Context, req domain.ClassifyRequest) domain.ClassificationResult {
	stem := strings.TrimSuffix(req.Filename, filepath.Ext(req.Filename))
	empty := strings.TrimSpace(req.Text) == ""

	if empty && domain.IsImageExtension(req.Extension) {
		return uc.finish(domain.ClassificationResult{
			Category:    domain.CategoryPictures,
			Description: stem,
			Confidence:  1,
			Source:      domain.SourceDefault,
		}, stem)
	}

	if uc.remote != nil && !empty {
		result, err := uc.remote.Classify(ctx, req)
		if err == nil {
			return uc.finish(uc.gate(result), stem)
		}
		uc.logger.Warn("classifier_fallback",
			"file", req.Filename,
			"error", err,
		)
		if uc.observer != nil {
			uc.observer.ObserveFallback(fallbackReason(err))
		}
	}

	return uc.finish(uc.rules.Classify(req), stem)
}

func (uc *ClassifyDocumentUseCase) gate(result domain.ClassificationResult) domain.ClassificationResult {
	if !result.Category.Valid() {
		result.Category = domain.CategoryOther
	}
	if uc.options.MinConfidence > 0 && result.Confidence < uc.options.MinConfidence && result.Category != domain.CategoryOther {
		uc.logger.Info("classification_below_threshold",
			"category", result.Category,
			"confidence", result.Confidence,
			"threshold", uc.options.MinConfidence,
		)
		result.Category = domain.CategoryOther
	}
	return result
}

func (uc *ClassifyDocumentUseCase) finish(result domain.ClassificationResult, stem string) domain.ClassificationResult {
	if !result.Category.Valid() {
		result.Category = domain.CategoryOther
	}
	result.Description = naming.Describe(result.Description, stem, uc.options.MaxSlugLen)
	result.Confidence = domain.ClampConfidence(result.Confidence)
	if uc.observer != nil {
		uc.observer.ObserveClassification(result.Source)
	}
	return result
}

func fallbackReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}
