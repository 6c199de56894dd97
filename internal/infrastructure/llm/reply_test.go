package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

func TestParseReplyStripsFencesAndValidates(t *testing.T) {
	raw := "```json\n{\"category\": \"receipts\", \"suggested_name\": \"Target Receipt\", \"confidence\": \"high\"}\n```"

	got, err := ParseReply(raw, 0)
	if err != nil {
		t.Fatalf("ParseReply() error = %v", err)
	}
	want := domain.ClassificationResult{
		Category:    domain.CategoryReceipts,
		Description: "target_receipt",
		Confidence:  0.9,
		Source:      domain.SourceAI,
	}
	if got != want {
		t.Fatalf("ParseReply() = %+v, want %+v", got, want)
	}
}

func TestParseReplyMapsUnknownCategoryToOther(t *testing.T) {
	got, err := ParseReply(`{"category":"tax forms","description":"w2 2024","confidence":1.7}`, 0)
	if err != nil {
		t.Fatalf("ParseReply() error = %v", err)
	}
	if got.Category != domain.CategoryOther {
		t.Fatalf("expected other, got %s", got.Category)
	}
	if got.Confidence != 1 {
		t.Fatalf("expected confidence clamped to 1, got %v", got.Confidence)
	}
}

func TestParseReplyRejectsMalformed(t *testing.T) {
	cases := []string{
		"I cannot classify this document.",
		`{"category":"receipts","description":"!!!"}`,
		`{"description":"receipt"}`,
	}
	for _, raw := range cases {
		_, err := ParseReply(raw, 0)
		if err == nil {
			t.Fatalf("ParseReply(%q) expected error", raw)
		}
		if !IsMalformedReply(err) {
			t.Fatalf("ParseReply(%q) expected malformed reply error, got %v", raw, err)
		}
		if ClassifyError(err).RecordFailure {
			t.Fatalf("malformed reply must not count against the breaker")
		}
	}
}

func TestParseConfidenceVariants(t *testing.T) {
	cases := map[string]float64{
		`0.42`:     0.42,
		`"medium"`: 0.6,
		`"low"`:    0.3,
		`"85%"`:    0.85,
		`"70"`:     0.7,
		`-3`:       0,
		`"unsure"`: 0,
	}
	for raw, want := range cases {
		if got := parseConfidence([]byte(raw)); got != want {
			t.Fatalf("parseConfidence(%s) = %v, want %v", raw, got, want)
		}
	}
}

func TestTruncateTextIsRuneSafe(t *testing.T) {
	text := strings.Repeat("ж", 10)
	got := TruncateText(text, 4)
	if got != "жжжж..." {
		t.Fatalf("TruncateText() = %q", got)
	}
	if TruncateText("short", 10) != "short" {
		t.Fatalf("short text must be unchanged")
	}
}

func TestBuildClassificationPromptCarriesVocabulary(t *testing.T) {
	prompt := BuildClassificationPrompt(domain.ClassifyRequest{Text: strings.Repeat("a", 5000), Filename: "scan.pdf"}, 100)
	for _, name := range domain.CategoryNames() {
		if !strings.Contains(prompt, name) {
			t.Fatalf("prompt is missing category %s", name)
		}
	}
	if strings.Contains(prompt, strings.Repeat("a", 101)) {
		t.Fatalf("prompt text was not truncated")
	}
}

func TestClassifyErrorStatuses(t *testing.T) {
	if !ClassifyError(&HTTPStatusError{StatusCode: http.StatusServiceUnavailable}).RecordFailure {
		t.Fatalf("503 must count against the breaker")
	}
	if ClassifyError(&HTTPStatusError{StatusCode: http.StatusBadRequest}).RecordFailure {
		t.Fatalf("400 must not count against the breaker")
	}
	if !ClassifyError(context.DeadlineExceeded).RecordFailure {
		t.Fatalf("timeouts must count against the breaker")
	}
}

type remoteFake struct {
	calls int
}

func (f *remoteFake) Classify(context.Context, domain.ClassifyRequest) (domain.ClassificationResult, error) {
	f.calls++
	return domain.ClassificationResult{Category: domain.CategoryMail}, nil
}

func TestRateLimitedFallsBackWhenSlotUnavailable(t *testing.T) {
	next := &remoteFake{}
	limited := NewRateLimited(next, 1)

	if _, err := limited.Classify(context.Background(), domain.ClassifyRequest{}); err != nil {
		t.Fatalf("first call error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := limited.Classify(ctx, domain.ClassifyRequest{})
	if !errors.Is(err, domain.ErrClassifierUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if next.calls != 1 {
		t.Fatalf("expected 1 downstream call, got %d", next.calls)
	}
}

func TestNewRateLimitedDisabled(t *testing.T) {
	next := &remoteFake{}
	if NewRateLimited(next, 0) != next {
		t.Fatalf("expected pass-through when limit is disabled")
	}
}
