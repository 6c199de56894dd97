package naming

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Walmart receipt", "walmart_receipt"},
		{"  Electric Bill -- December!! ", "electric_bill_december"},
		{"IMG_2023", "img_2023"},
		{"tax/document: W2", "tax_document_w2"},
		{"__already__slugged__", "already_slugged"},
		{"Café résumé", "caf_r_sum"},
		{"***", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Slugify(tc.in, 0), "Slugify(%q)", tc.in)
	}
}

func TestSlugifyCapsLength(t *testing.T) {
	long := strings.Repeat("word ", 40)
	slug := Slugify(long, 60)

	assert.LessOrEqual(t, len(slug), 60)
	assert.False(t, strings.HasSuffix(slug, "_"))
	assert.True(t, strings.HasPrefix(slug, "word_word"))
}

func TestDescribeFallsBackToFilenameThenToken(t *testing.T) {
	assert.Equal(t, "walmart_receipt", Describe("Walmart Receipt", "scan_001", 0))
	assert.Equal(t, "scan_001", Describe("!!!", "scan_001", 0))
	assert.Equal(t, FallbackToken, Describe("", "", 0))
}

func TestBuildTarget(t *testing.T) {
	namer := NewNamer(0)
	scanDate := time.Date(2025, time.October, 23, 15, 4, 5, 0, time.Local)

	target := namer.BuildTarget(domain.ClassificationResult{
		Category:    domain.CategoryReceipts,
		Description: "Walmart receipt",
		Source:      domain.SourceKeyword,
	}, scanDate, ".PDF")

	assert.Equal(t, domain.CategoryReceipts, target.Folder)
	assert.Equal(t, "walmart_receipt_10232025.pdf", target.Filename())
	assert.Equal(t, "walmart_receipt_10232025_2.pdf", target.Variant(2))
	assert.Equal(t, "receipts/walmart_receipt_10232025.pdf", target.RelativePath())
}

func TestBuildTargetNormalizesUnknownCategoryAndEmptyDescription(t *testing.T) {
	namer := NewNamer(0)
	scanDate := time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)

	target := namer.BuildTarget(domain.ClassificationResult{Category: "tax"}, scanDate, ".jpg")

	assert.Equal(t, domain.CategoryOther, target.Folder)
	assert.Equal(t, "document_01022025.jpg", target.Filename())
}

func TestIsStamped(t *testing.T) {
	assert.True(t, IsStamped("receipt_10232025.pdf"))
	assert.True(t, IsStamped("receipt_10232025_2.pdf"))
	assert.True(t, IsStamped("img_2023_10232025.jpg"))
	assert.False(t, IsStamped("IMG_2023.jpg"))
	assert.False(t, IsStamped("scan_001.pdf"))
	assert.False(t, IsStamped("scan_20231023.pdf"), "YYYYMMDD is not the canonical stamp")
	assert.False(t, IsStamped("receipt_13452025.pdf"), "month 13 is not a date")
}
