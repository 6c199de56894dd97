package domain

import (
	"math"
	"testing"
	"time"
)

func TestParseRunMode(t *testing.T) {
	m, err := ParseRunMode(" Watch ")
	if err != nil || m != ModeWatch || !m.Continuous() {
		t.Fatalf("ParseRunMode(watch) = %q, %v", m, err)
	}
	m, err = ParseRunMode("once")
	if err != nil || m != ModeExisting || m.Continuous() {
		t.Fatalf("ParseRunMode(once) = %q, %v", m, err)
	}
	if _, err := ParseRunMode("forever"); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"Receipts": CategoryReceipts,
		"invoice":  CategoryInvoices,
		" BILL ":   CategoryBills,
		"photo":    CategoryPictures,
		"taxes":    CategoryOther,
		"":         CategoryOther,
	}
	for raw, want := range cases {
		if got := ParseCategory(raw); got != want {
			t.Fatalf("ParseCategory(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestClampConfidence(t *testing.T) {
	if ClampConfidence(math.NaN()) != 0 || ClampConfidence(-1) != 0 || ClampConfidence(3) != 1 || ClampConfidence(0.4) != 0.4 {
		t.Fatalf("ClampConfidence out of range handling is wrong")
	}
}

func TestScanCandidateAndTargetName(t *testing.T) {
	c := NewScanCandidate("/scans/IMG_2023.JPG", time.Now())
	if c.Extension != ".jpg" || c.Stem() != "IMG_2023" || !c.IsImage() {
		t.Fatalf("unexpected candidate: %+v", c)
	}

	target := TargetName{Folder: CategoryReceipts, Stem: "receipt_10232025", Ext: ".pdf"}
	if target.Variant(1) != "receipt_10232025.pdf" || target.Variant(3) != "receipt_10232025_3.pdf" {
		t.Fatalf("unexpected variants: %s %s", target.Variant(1), target.Variant(3))
	}
}

func TestOutcomeRecordState(t *testing.T) {
	start := time.Now()
	r := OutcomeRecord{Success: true, StartedAt: start, FinishedAt: start.Add(-time.Second)}
	if r.State() != StageDone || r.Duration() != 0 {
		t.Fatalf("unexpected state %s duration %s", r.State(), r.Duration())
	}
	if !StageFailed.Terminal() || StagePlacing.Terminal() {
		t.Fatalf("terminal stages are wrong")
	}
}
