package storefront

import (
	"fmt"

	"github.com/kailas-cloud/catalog/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() on an *APIError to check.
var (
	ErrNotFound       = domain.ErrNotFound
	ErrMalformedID    = domain.ErrMalformedID
	ErrValidation     = domain.ErrValidation
	ErrTransientFetch = domain.ErrTransientFetch
)

// FieldError is a single rejected field of a write.
type FieldError = domain.FieldError

// APIError is a non-2xx response of the catalog API.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  []FieldError
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("catalog api: %d %s: %s (%d field errors)", e.Status, e.Code, e.Message, len(e.Fields))
	}
	return fmt.Sprintf("catalog api: %d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap maps the response code to the matching sentinel.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "product_not_found":
		return ErrNotFound
	case "invalid_id":
		return ErrMalformedID
	case "validation_failed":
		return ErrValidation
	case "fetch_failed":
		return ErrTransientFetch
	}
	return nil
}
