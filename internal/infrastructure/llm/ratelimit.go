package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
	"github.com/kirillkom/scan-organizer/internal/core/ports"
)

// RateLimited throttles a remote classifier to perMinute requests. A wait
// that cannot complete before ctx ends is reported as unavailable so the
// caller falls back instead of blocking.
type RateLimited struct {
	next    ports.RemoteClassifier
	limiter *rate.Limiter
}

func NewRateLimited(next ports.RemoteClassifier, perMinute int) ports.RemoteClassifier {
	if perMinute <= 0 {
		return next
	}
	limit := rate.Every(time.Minute / time.Duration(perMinute))
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (r *RateLimited) Classify(ctx context.Context, req domain.ClassifyRequest) (domain.ClassificationResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.ClassificationResult{}, Unavailable("rate limiter", fmt.Errorf("wait for slot: %w", err))
	}
	return r.next.Classify(ctx, req)
}
