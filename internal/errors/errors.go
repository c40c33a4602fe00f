// Package errors provides the categorised error type used by the engine.
// Every error carries a category and code so callers can match on the
// failure class with errors.Is regardless of the wrapped cause.
package errors

import (
	"errors"
	"fmt"
)

// Category classifies errors by the stage that raised them.
type Category string

const (
	CategoryConfiguration Category = "CONFIGURATION"
	CategorySchema        Category = "SCHEMA"
	CategoryPersistence   Category = "PERSISTENCE"
	CategorySerialization Category = "SERIALIZATION"
	CategoryCollector     Category = "COLLECTOR"
)

// Error codes.
const (
	CodeUnsupportedKind = "UNSUPPORTED_KIND"
	CodeInvalidOption   = "INVALID_OPTION"
	CodeDriftDeclined   = "DRIFT_DECLINED"
	CodeMigration       = "MIGRATION_FAILED"
	CodeWriteFailed     = "WRITE_FAILED"
	CodeEncodeFailed    = "ENCODE_FAILED"
	CodeUnknownMetric   = "UNKNOWN_METRIC"
	CodeKindMismatch    = "KIND_MISMATCH"
	CodeStartFailed     = "START_FAILED"
)

// Error is the structured error type returned by the engine packages.
type Error struct {
	Category Category
	Code     string
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same category. A target
// with an empty code matches any code in that category.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if e.Category != t.Category {
		return false
	}
	return t.Code == "" || e.Code == t.Code
}

// New creates an Error without a cause.
func New(category Category, code, message string) *Error {
	return &Error{Category: category, Code: code, Message: message}
}

// Wrap creates an Error wrapping cause.
func Wrap(category Category, code, message string, cause error) *Error {
	return &Error{Category: category, Code: code, Message: message, Cause: cause}
}

// Sentinels for errors.Is matching.
var (
	ErrConfiguration       = &Error{Category: CategoryConfiguration}
	ErrSchemaDriftDeclined = &Error{Category: CategorySchema, Code: CodeDriftDeclined}
	ErrPersistence         = &Error{Category: CategoryPersistence}
	ErrSerialization       = &Error{Category: CategorySerialization}
	ErrUnknownMetric       = &Error{Category: CategoryCollector, Code: CodeUnknownMetric}
	ErrKindMismatch        = &Error{Category: CategoryCollector, Code: CodeKindMismatch}
)

// Configuration returns a CONFIGURATION error.
func Configuration(code, format string, args ...any) *Error {
	return New(CategoryConfiguration, code, fmt.Sprintf(format, args...))
}

// Persistence wraps a durable write failure.
func Persistence(message string, cause error) *Error {
	return Wrap(CategoryPersistence, CodeWriteFailed, message, cause)
}

// Serialization wraps a value that could not be encoded for storage.
func Serialization(message string, cause error) *Error {
	return Wrap(CategorySerialization, CodeEncodeFailed, message, cause)
}

// GetCategory extracts the category from an error chain, or "" if none.
func GetCategory(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}

// GetCode extracts the code from an error chain, or "" if none.
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
