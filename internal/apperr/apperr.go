// Package apperr holds the error kinds shared by the domain packages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a uniqueness constraint would be violated.
	ErrDuplicate = errors.New("already exists")
	// ErrValidation is returned for caller input that fails validation.
	ErrValidation = errors.New("validation failed")
)

// FormatError reports a file-level problem with an uploaded statement:
// wrong extension, undetectable delimiter or missing required columns.
// Err, when set, is the underlying cause and is reachable with errors.Is.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	return "invalid file format: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// NewFormatError builds a FormatError from a format string.
func NewFormatError(format string, args ...any) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// WrapFormat builds a FormatError around err.
func WrapFormat(err error) *FormatError {
	return &FormatError{Reason: err.Error(), Err: err}
}

// IsFormat reports whether err wraps a FormatError.
func IsFormat(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// Validation wraps ErrValidation with a message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with the entity name and id.
func NotFound(entity string, id any) error {
	return fmt.Errorf("%s %v: %w", entity, id, ErrNotFound)
}

// Duplicate wraps ErrDuplicate with a message.
func Duplicate(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDuplicate, fmt.Sprintf(format, args...))
}
