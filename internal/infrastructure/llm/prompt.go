// Package llm holds what the remote classifier adapters share: the
// classification prompt, reply validation, error classification for the
// resilience executor and request throttling.
package llm

import (
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

const DefaultMaxChars = 3000

// TruncateText bounds text to maxChars runes, marking the cut with "...".
func TruncateText(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxChars]) + "..."
}

// BuildClassificationPrompt renders the instruction sent to every provider.
func BuildClassificationPrompt(req domain.ClassifyRequest, maxChars int) string {
	var b strings.Builder
	b.WriteString("Analyze this scanned document and classify it.\n\n")
	b.WriteString("Original filename: ")
	b.WriteString(req.Filename)
	b.WriteString("\n\nDocument text:\n")
	b.WriteString(TruncateText(req.Text, maxChars))
	b.WriteString("\n\nReturn a strict JSON object with keys:\n")
	b.WriteString(`"category" - one of: ` + strings.Join(domain.CategoryNames(), ", ") + "\n")
	b.WriteString(`"description" - a concise descriptive filename, 2-4 words, no extension, underscores instead of spaces` + "\n")
	b.WriteString(`"confidence" - number from 0 to 1` + "\n\n")
	b.WriteString("Examples of good descriptions: walmart_grocery_receipt, electric_bill_december, job_offer_letter, tax_document_w2.\n")
	b.WriteString(`Respond ONLY with JSON like {"category": "receipts", "description": "target_receipt", "confidence": 0.9}. No markdown, no extra keys.`)
	return b.String()
}
