// internal/core/domain/errors.go
package domain

import "errors"

// Sentinel errors returned across the catalog service boundary
var (
	ErrNotFound     = errors.New("catalog record not found")
	ErrDuplicateKey = errors.New("a catalog record with this sku already exists")
	ErrValidation   = errors.New("validation failed")
)

// ValidationError describes a single rejected field
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a validation error for field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// Unwrap lets callers match any ValidationError with errors.Is(err, ErrValidation)
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
