package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for media file validation.
var (
	ErrFileNotFound     = errors.New("file does not exist")
	ErrNotRegularFile   = errors.New("not a regular file")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrEmptyTranscript  = errors.New("transcript is empty")
)

// ValidationError wraps a sentinel with the offending path.
type ValidationError struct {
	Path    string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Wrapped, e.Path)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(path string, wrapped error) *ValidationError {
	return &ValidationError{Path: path, Wrapped: wrapped}
}
