package v1

import (
	"errors"
	"fmt"
)

// Common API errors.
var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrNotFound           = errors.New("not found")
	ErrAssessmentNotFound = fmt.Errorf("assessment %w", ErrNotFound)
	ErrStandardNotFound   = fmt.Errorf("standard version %w", ErrNotFound)
)

// ValidationError describes a request that failed schema or value checks.
// It matches ErrInvalidRequest under errors.Is.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is reports ErrInvalidRequest as a match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}
