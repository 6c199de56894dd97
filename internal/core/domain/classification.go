package domain

import (
	"math"
	"strings"
)

type Category string

const (
	CategoryReceipts  Category = "receipts"
	CategoryInvoices  Category = "invoices"
	CategoryBills     Category = "bills"
	CategoryLetters   Category = "letters"
	CategoryDocuments Category = "documents"
	CategoryMail      Category = "mail"
	CategoryPictures  Category = "pictures"
	CategoryOther     Category = "other"
)

// Categories lists the fixed category vocabulary in presentation order.
var Categories = []Category{
	CategoryReceipts,
	CategoryInvoices,
	CategoryBills,
	CategoryLetters,
	CategoryDocuments,
	CategoryMail,
	CategoryPictures,
	CategoryOther,
}

// ParseCategory maps a free-form category name onto the fixed vocabulary.
// Singular forms are accepted; anything unknown becomes CategoryOther.
func ParseCategory(raw string) Category {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return CategoryOther
	}
	for _, c := range Categories {
		if name == string(c) || name+"s" == string(c) {
			return c
		}
	}
	if name == "picture" || name == "photo" || name == "photos" {
		return CategoryPictures
	}
	return CategoryOther
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Folder is the subfolder name under the organize root.
func (c Category) Folder() string {
	return string(c)
}

func CategoryNames() []string {
	names := make([]string, 0, len(Categories))
	for _, c := range Categories {
		names = append(names, string(c))
	}
	return names
}

type ClassificationSource string

const (
	SourceAI      ClassificationSource = "ai"
	SourceKeyword ClassificationSource = "keyword"
	SourceDefault ClassificationSource = "default"
)

type ClassificationResult struct {
	Category    Category             `json:"category"`
	Description string               `json:"description"`
	Confidence  float64              `json:"confidence"`
	Source      ClassificationSource `json:"source"`
}

// ClassifyRequest carries what a classifier may look at for one file.
type ClassifyRequest struct {
	Text      string
	Filename  string
	Extension string
}

func ClampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
