package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeFormat covers structural CSV problems: missing columns, empty
	// file, no data rows. Always fatal to the ingestion attempt.
	ErrTypeFormat ErrorType = "FORMAT"
	// ErrTypeValidation covers per-field semantic problems: bad dates,
	// non-numeric amounts, control characters, formula-injection prefixes.
	ErrTypeValidation ErrorType = "VALIDATION"
	// ErrTypeLimit covers resource ceilings: file too large, too many rows.
	ErrTypeLimit ErrorType = "LIMIT"
	// ErrTypeStorage covers filesystem failures around exports and imports.
	ErrTypeStorage ErrorType = "STORAGE"
	// ErrTypeConfig covers configuration loading and validation failures.
	ErrTypeConfig ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewFormatError creates a structural CSV error
func NewFormatError(message string) *AppError {
	return NewAppError(ErrTypeFormat, message, nil)
}

// NewValidationError creates a field-level validation error
func NewValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewRowError wraps a per-field error with its 1-based source line number.
// The row error keeps the cause's type so callers can still distinguish
// validation failures from limit breaches.
func NewRowError(line int, cause error) *AppError {
	errType := ErrTypeValidation
	var app *AppError
	if errors.As(cause, &app) {
		errType = app.Type
	}
	return NewAppError(errType, fmt.Sprintf("Row %d: %s", line, messageOf(cause)), cause)
}

// NewLimitError creates a resource-limit error
func NewLimitError(message string) *AppError {
	return NewAppError(ErrTypeLimit, message, nil)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	var app *AppError
	if errors.As(err, &app) {
		return app.Type == t
	}
	return false
}

// IsFormat reports whether err is a structural CSV error.
func IsFormat(err error) bool { return IsType(err, ErrTypeFormat) }

// IsValidation reports whether err is a field validation error.
func IsValidation(err error) bool { return IsType(err, ErrTypeValidation) }

// IsLimit reports whether err is a resource-limit error.
func IsLimit(err error) bool { return IsType(err, ErrTypeLimit) }

// messageOf returns the AppError message when available, so row errors read
// "Row 3: Invalid Date value" instead of repeating the type prefix.
func messageOf(err error) string {
	var app *AppError
	if errors.As(err, &app) {
		return app.Message
	}
	return err.Error()
}
