package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound signals a missing product.
	ErrNotFound = errors.New("product not found")
	// ErrMalformedID signals an identifier that cannot address a product at all.
	ErrMalformedID = errors.New("invalid product id format")
	// ErrValidation signals a write rejected by field validation.
	ErrValidation = errors.New("validation failed")
	// ErrTransientFetch signals a read path failure (store unreachable, timeout).
	// Safe to retry; no partial data accompanies it.
	ErrTransientFetch = errors.New("failed to fetch products")
	// ErrTextSearchNotSupported signals that the backend lacks weighted full-text search.
	ErrTextSearchNotSupported = errors.New("full-text search not supported by backend")
)

// FieldError is a single rejected field on the write path.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError wraps ErrValidation with per-field details.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error for the given fields.
func NewValidationError(fields ...FieldError) error {
	return &ValidationError{Fields: fields}
}
