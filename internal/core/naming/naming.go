// Package naming derives canonical filenames for organized documents.
//
// A canonical name is "{slug}_{MMDDYYYY}{.ext}", where the slug comes from
// the classifier description and the date is the day the file was detected.
package naming

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
)

const (
	DefaultMaxSlugLen = 60
	FallbackToken     = "document"
	dateLayout        = "01022006"
)

var stampedPattern = regexp.MustCompile(`_(\d{2})(\d{2})(\d{4})(?:_\d+)?$`)

// Slugify lowercases text, turns every run of characters outside [a-z0-9]
// into a single underscore and trims the result to maxLen characters.
// Non-ASCII letters are dropped, so the result is always filename-safe.
func Slugify(text string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxSlugLen
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(text) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}

	slug := b.String()
	if len(slug) > maxLen {
		slug = strings.TrimRight(slug[:maxLen], "_")
	}
	return slug
}

// Describe returns a slug for description, falling back to the slug of
// fallback and finally to FallbackToken.
func Describe(description, fallback string, maxLen int) string {
	if slug := Slugify(description, maxLen); slug != "" {
		return slug
	}
	if slug := Slugify(fallback, maxLen); slug != "" {
		return slug
	}
	return FallbackToken
}

func DateStamp(t time.Time) string {
	return t.Format(dateLayout)
}

type Namer struct {
	maxSlugLen int
}

func NewNamer(maxSlugLen int) *Namer {
	if maxSlugLen <= 0 {
		maxSlugLen = DefaultMaxSlugLen
	}
	return &Namer{maxSlugLen: maxSlugLen}
}

// BuildTarget combines the classification, the scan date and the original
// extension into a target name. Collisions are not checked here.
func (n *Namer) BuildTarget(result domain.ClassificationResult, scanDate time.Time, ext string) domain.TargetName {
	category := result.Category
	if !category.Valid() {
		category = domain.CategoryOther
	}
	slug := Describe(result.Description, "", n.maxSlugLen)
	return domain.TargetName{
		Folder: category,
		Stem:   slug + "_" + DateStamp(scanDate),
		Ext:    strings.ToLower(ext),
	}
}

// IsStamped reports whether filename already follows the canonical
// "_MMDDYYYY" (optionally "_MMDDYYYY_n") convention.
func IsStamped(filename string) bool {
	stem := filename
	if idx := strings.LastIndex(filename, "."); idx > 0 {
		stem = filename[:idx]
	}
	m := stampedPattern.FindStringSubmatch(stem)
	if m == nil {
		return false
	}
	_, err := time.Parse(dateLayout, m[1]+m[2]+m[3])
	return err == nil
}
