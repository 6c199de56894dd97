package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
	"github.com/kirillkom/scan-organizer/internal/core/naming"
)

var errMalformedReply = errors.New("malformed classifier reply")

type rawReply struct {
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	SuggestedName string          `json:"suggested_name"`
	Confidence    json.RawMessage `json:"confidence"`
}

// ParseReply validates a model reply into a ClassificationResult. The JSON
// object may be wrapped in prose or code fences. Unknown categories map to
// "other"; a reply without any usable description is rejected so the caller
// can fall back.
func ParseReply(raw string, maxSlugLen int) (domain.ClassificationResult, error) {
	var reply rawReply
	if err := json.Unmarshal([]byte(ExtractJSONObject(raw)), &reply); err != nil {
		return domain.ClassificationResult{}, domain.WrapError(errMalformedReply, "parse classification json", err)
	}
	if strings.TrimSpace(reply.Category) == "" {
		return domain.ClassificationResult{}, fmt.Errorf("parse classification json: %w: missing category", errMalformedReply)
	}

	description := reply.Description
	if strings.TrimSpace(description) == "" {
		description = reply.SuggestedName
	}
	slug := naming.Slugify(description, maxSlugLen)
	if slug == "" {
		return domain.ClassificationResult{}, fmt.Errorf("parse classification json: %w: empty description", errMalformedReply)
	}

	return domain.ClassificationResult{
		Category:    domain.ParseCategory(reply.Category),
		Description: slug,
		Confidence:  parseConfidence(reply.Confidence),
		Source:      domain.SourceAI,
	}, nil
}

// IsMalformedReply reports whether err came from ParseReply.
func IsMalformedReply(err error) bool {
	return errors.Is(err, errMalformedReply)
}

// ExtractJSONObject returns the outermost {...} span of raw, ignoring code
// fences and surrounding prose.
func ExtractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func parseConfidence(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return domain.ClampConfidence(number)
	}
	var word string
	if err := json.Unmarshal(raw, &word); err != nil {
		return 0
	}
	word = strings.ToLower(strings.TrimSpace(word))
	switch word {
	case "high":
		return 0.9
	case "medium":
		return 0.6
	case "low":
		return 0.3
	}
	if v, err := strconv.ParseFloat(strings.TrimSuffix(word, "%"), 64); err == nil {
		if strings.HasSuffix(word, "%") || v > 1 {
			v /= 100
		}
		return domain.ClampConfidence(v)
	}
	return 0
}
