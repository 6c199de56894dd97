// Package watcher discovers scan candidates in the root folder, either by a
// one-shot listing or by following filesystem events.
package watcher

import (
	"path/filepath"
	"strings"

	"github.com/kirillkom/scan-organizer/internal/core/domain"
	"github.com/kirillkom/scan-organizer/internal/core/naming"
)

// Eligible reports whether path is a candidate: a direct child of root with
// a supported extension that is neither hidden, a temp file, nor already
// carrying the canonical date stamp.
func Eligible(root, path string) bool {
	if filepath.Clean(filepath.Dir(path)) != filepath.Clean(root) {
		return false
	}
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") {
		return false
	}
	if !domain.IsSupportedExtension(domain.NormalizeExtension(name)) {
		return false
	}
	return !naming.IsStamped(name)
}
