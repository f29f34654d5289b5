package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParse indicates the spreadsheet could not be decoded; the whole
	// import aborts with no rows produced.
	ErrParse = errors.New("parse error")
	// ErrProvider indicates a metadata-provider request failed. Row-scoped:
	// the affected row degrades to unmatched and the scan continues.
	ErrProvider = errors.New("provider request error")
	// ErrRateLimit is the provider throttling subtype of ErrProvider.
	ErrRateLimit = fmt.Errorf("%w: rate limited", ErrProvider)
	// ErrPersistence indicates a catalogue or annotation write failed during
	// commit. Row-scoped: counted in the failure summary.
	ErrPersistence = errors.New("persistence error")
	// ErrValidation marks caller mistakes (bad flags, bad plan files).
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks missing records.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrProvider
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRowScoped reports whether an error should degrade a single row rather
// than abort the surrounding stage.
func IsRowScoped(err error) bool {
	return errors.Is(err, ErrProvider) || errors.Is(err, ErrPersistence)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
