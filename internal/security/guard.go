// Package security guards CSV ingestion against hostile or broken uploads:
// binary payloads, spreadsheet formula injection, and oversized files.
//
// Cells that begin with '=', '+', '-' or '@' can execute as formulas when the
// exported CSV is opened in spreadsheet software. The guard rejects such
// values instead of escaping them, forcing the uploader to fix the source
// data rather than silently carrying a defused payload forward.
package security

import (
	"fmt"
	"strings"

	"attendash/internal/errors"
)

const (
	// MaxCSVRows is the ceiling on data rows per upload.
	MaxCSVRows = 10000
	// MaxFileBytes is the upload size ceiling (2 MiB).
	MaxFileBytes = 2 * 1024 * 1024
	// MaxFieldLength is the ceiling on sanitized text field length.
	MaxFieldLength = 120
)

// formulaPrefixes are the characters spreadsheet engines treat as the start
// of a formula.
var formulaPrefixes = []rune{'=', '+', '-', '@'}

// EnsureNoBinaryData rejects text containing control characters outside the
// line-structure set. Tab (U+0009), LF (U+000A) and CR (U+000D) are exempt.
func EnsureNoBinaryData(text string) error {
	for _, r := range text {
		if isForbiddenControl(r) {
			return errors.NewFormatError("file contains unsupported control characters")
		}
	}
	return nil
}

// SanitizeTextValue trims a raw cell and validates it as a plain text field.
// Empty input is returned as-is; callers decide whether empty is acceptable.
func SanitizeTextValue(value, fieldName string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", nil
	}

	for _, r := range trimmed {
		if isForbiddenControl(r) || r == '\t' || r == '\n' || r == '\r' {
			return "", errors.NewValidationError(
				fmt.Sprintf("%s contains unsupported control characters", fieldName))
		}
	}

	first := []rune(trimmed)[0]
	for _, p := range formulaPrefixes {
		if first == p {
			return "", errors.NewValidationError(
				fmt.Sprintf("%s cannot start with %q", fieldName, string(first)))
		}
	}

	if len([]rune(trimmed)) > MaxFieldLength {
		return "", errors.NewValidationError(
			fmt.Sprintf("%s exceeds the maximum length of %d characters", fieldName, MaxFieldLength))
	}

	return trimmed, nil
}

// CheckRowLimit fails once the parsed data row count exceeds MaxCSVRows.
func CheckRowLimit(count int) error {
	if count > MaxCSVRows {
		return errors.NewLimitError(
			fmt.Sprintf("CSV contains more than the maximum allowed %d data rows", MaxCSVRows))
	}
	return nil
}

// CheckFileSize rejects uploads larger than MaxFileBytes. Callers should
// apply it to file metadata before reading the payload where possible.
func CheckFileSize(size int64) error {
	if size > MaxFileBytes {
		return errors.NewLimitError(
			fmt.Sprintf("file size %s exceeds the maximum allowed %s",
				FormatFileSize(size), FormatFileSize(MaxFileBytes)))
	}
	return nil
}

// FormatFileSize renders a byte count in human-readable units, rounding to
// one decimal place above a whole unit.
func FormatFileSize(size int64) string {
	const unit = 1024
	switch {
	case size < unit:
		return fmt.Sprintf("%d bytes", size)
	case size < unit*unit:
		return fmt.Sprintf("%.1f KB", float64(size)/unit)
	case size < unit*unit*unit:
		return fmt.Sprintf("%.1f MB", float64(size)/(unit*unit))
	default:
		return fmt.Sprintf("%.1f GB", float64(size)/(unit*unit*unit))
	}
}

// isForbiddenControl reports whether r is a control character that may not
// appear anywhere in an upload: U+0000-U+0008, U+000B-U+000C, U+000E-U+001F
// and U+007F. Tab and newlines are line structure and pass through here.
func isForbiddenControl(r rune) bool {
	switch {
	case r >= 0x00 && r <= 0x08:
		return true
	case r == 0x0B || r == 0x0C:
		return true
	case r >= 0x0E && r <= 0x1F:
		return true
	case r == 0x7F:
		return true
	}
	return false
}
