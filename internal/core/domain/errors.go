package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrTemporary             = errors.New("temporary failure")
	ErrUnsupportedFormat     = errors.New("unsupported format")
	ErrExtractorUnavailable  = errors.New("extraction engine unavailable")
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	ErrOrganize              = errors.New("organize failed")
	ErrSourceMissing         = errors.New("source file missing")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
