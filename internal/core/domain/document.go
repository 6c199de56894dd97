package domain

import (
	"path/filepath"
	"strings"
	"time"
)

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".tif":  {},
	".tiff": {},
	".bmp":  {},
	".gif":  {},
}

const PDFExtension = ".pdf"

// ScanCandidate is a file detected in the scan folder. It is created once by
// the scanner or watcher and consumed by exactly one pipeline execution.
type ScanCandidate struct {
	Path       string    `json:"path"`
	DetectedAt time.Time `json:"detected_at"`
	Extension  string    `json:"extension"`
}

func NewScanCandidate(path string, detectedAt time.Time) ScanCandidate {
	return ScanCandidate{
		Path:       path,
		DetectedAt: detectedAt,
		Extension:  NormalizeExtension(path),
	}
}

// Filename returns the base name of the candidate path.
func (c ScanCandidate) Filename() string {
	return filepath.Base(c.Path)
}

// Stem returns the base name without extension.
func (c ScanCandidate) Stem() string {
	name := c.Filename()
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func (c ScanCandidate) IsImage() bool {
	return IsImageExtension(c.Extension)
}

// ExtractedText is the output of the extraction stage. An empty Text is a
// valid result meaning no characters were recognized.
type ExtractedText struct {
	SourcePath string `json:"source_path"`
	Text       string `json:"text"`
	PageCount  int    `json:"page_count"`
	Truncated  bool   `json:"truncated"`
}

func (t ExtractedText) Empty() bool {
	return strings.TrimSpace(t.Text) == ""
}

func NormalizeExtension(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func IsImageExtension(ext string) bool {
	_, ok := imageExtensions[strings.ToLower(ext)]
	return ok
}

func IsSupportedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	return ext == PDFExtension || IsImageExtension(ext)
}
