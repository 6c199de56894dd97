// Package keyword implements the deterministic fallback classifier: an
// ordered table of keyword rules where the first matching rule wins.
package keyword

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
	"github.com/kirillkom/scan-organizer/internal/core/naming"
)

const (
	matchConfidence   = 0.3
	noMatchConfidence = 0.1
	contextWords      = 3
)

// Rule maps a set of keywords to a category.
type Rule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules is the built-in table. Order matters: it is the tie-break.
func DefaultRules() []Rule {
	return []Rule{
		{Category: "receipts", Keywords: []string{"receipt", "paid", "subtotal", "purchase", "transaction"}},
		{Category: "invoices", Keywords: []string{"invoice", "bill to", "amount due"}},
		{Category: "bills", Keywords: []string{"statement", "balance due", "bill", "utility"}},
		{Category: "letters", Keywords: []string{"dear", "sincerely", "regards"}},
		{Category: "mail", Keywords: []string{"postage", "usps", "fedex", "ups", "return service requested"}},
		{Category: "documents", Keywords: []string{"agreement", "contract", "certificate", "application"}},
		{Category: "pictures", Keywords: []string{"photo", "picture"}},
	}
}

// LoadRules reads a YAML rule table:
//
//	rules:
//	  - category: receipts
//	    keywords: [receipt, paid]
func LoadRules(path string) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyword rules: %w", err)
	}
	var file ruleFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse keyword rules: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load keyword rules", fmt.Errorf("%s has no rules", path))
	}
	for i, rule := range file.Rules {
		if !domain.Category(strings.ToLower(strings.TrimSpace(rule.Category))).Valid() {
			return nil, domain.WrapError(domain.ErrInvalidInput, "load keyword rules", fmt.Errorf("rule %d: unknown category %q", i+1, rule.Category))
		}
	}
	return file.Rules, nil
}

type compiledRule struct {
	category domain.Category
	keywords []*regexp.Regexp
}

type Classifier struct {
	rules      []compiledRule
	maxSlugLen int
}

func New(rules []Rule, maxSlugLen int) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		cr := compiledRule{category: domain.ParseCategory(rule.Category)}
		for _, kw := range rule.Keywords {
			word := strings.ToLower(strings.TrimSpace(kw))
			if word == "" {
				continue
			}
			cr.keywords = append(cr.keywords, regexp.MustCompile(`\b`+wordPattern(word)+`\b`))
		}
		compiled = append(compiled, cr)
	}
	return &Classifier{rules: compiled, maxSlugLen: maxSlugLen}
}

// Classify scans the lowercased text rule by rule. Within a rule the
// keyword that occurs earliest in the text supplies the description.
func (c *Classifier) Classify(req domain.ClassifyRequest) domain.ClassificationResult {
	text := strings.ToLower(req.Text)
	stem := stemOf(req.Filename)

	for _, rule := range c.rules {
		bestStart := -1
		var bestEnd int
		for _, kw := range rule.keywords {
			loc := kw.FindStringIndex(text)
			if loc == nil {
				continue
			}
			if bestStart < 0 || loc[0] < bestStart {
				bestStart, bestEnd = loc[0], loc[1]
			}
		}
		if bestStart < 0 {
			continue
		}
		return domain.ClassificationResult{
			Category:    rule.category,
			Description: naming.Describe(describeMatch(text, bestStart, bestEnd), stem, c.maxSlugLen),
			Confidence:  matchConfidence,
			Source:      domain.SourceKeyword,
		}
	}

	return domain.ClassificationResult{
		Category:    domain.CategoryOther,
		Description: naming.Describe(stem, "", c.maxSlugLen),
		Confidence:  noMatchConfidence,
		Source:      domain.SourceKeyword,
	}
}

// describeMatch returns up to contextWords words preceding the keyword in
// its line or sentence, followed by the keyword itself.
func describeMatch(text string, start, end int) string {
	lineStart := strings.LastIndexAny(text[:start], "\n.,:;!?|") + 1
	before := strings.Fields(text[lineStart:start])
	if len(before) > contextWords {
		before = before[len(before)-contextWords:]
	}
	words := append(before, text[start:end])
	return strings.Join(words, " ")
}

func wordPattern(word string) string {
	parts := strings.Fields(word)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return strings.Join(parts, `\s+`)
}

func stemOf(filename string) string {
	if idx := strings.LastIndex(filename, "."); idx > 0 {
		return filename[:idx]
	}
	return filename
}
