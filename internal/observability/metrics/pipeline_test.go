package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

func TestPipelineMetricsRecord(t *testing.T) {
	m := NewPipelineMetrics("test")
	start := time.Now()

	_ = m.Record(context.Background(), domain.OutcomeRecord{
		Success:        true,
		Classification: &domain.ClassificationResult{Category: domain.CategoryReceipts},
		StartedAt:      start,
		FinishedAt:     start.Add(time.Second),
	})
	_ = m.Record(context.Background(), domain.OutcomeRecord{FailedStage: domain.StagePlacing, StartedAt: start, FinishedAt: start})
	m.ObserveClassification(domain.SourceKeyword)
	m.ObserveFallback("timeout")
	m.ObserveInFlight(1)

	if got := testutil.ToFloat64(m.processTotal.WithLabelValues("done", "")); got != 1 {
		t.Fatalf("done total = %v", got)
	}
	if got := testutil.ToFloat64(m.processTotal.WithLabelValues("failed", "placing")); got != 1 {
		t.Fatalf("failed total = %v", got)
	}
	if got := testutil.ToFloat64(m.organizedCategory.WithLabelValues("receipts")); got != 1 {
		t.Fatalf("receipts total = %v", got)
	}
	if got := testutil.ToFloat64(m.processInFlight); got != 1 {
		t.Fatalf("in flight = %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `scan_classifier_fallbacks_total{reason="timeout",service="test"} 1`) {
		t.Fatalf("fallback metric missing from exposition:\n%s", body)
	}
}
