package chi

import (
	"github.com/kailas-cloud/catalog/internal/domain"
	"github.com/kailas-cloud/catalog/internal/domain/facet"
	domprod "github.com/kailas-cloud/catalog/internal/domain/product"
	"github.com/kailas-cloud/catalog/internal/domain/search/page"
	cataloguc "github.com/kailas-cloud/catalog/internal/usecase/catalog"
)

// ErrorCode is the machine-readable error code in ErrorResponse.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeInvalidID        ErrorCode = "invalid_id"
	ErrorCodeNotFound         ErrorCode = "product_not_found"
	ErrorCodeFetchFailed      ErrorCode = "fetch_failed"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-validation error.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ValidationResponse lists every rejected field.
type ValidationResponse struct {
	Code    ErrorCode           `json:"code"`
	Message string              `json:"message"`
	Errors  []domain.FieldError `json:"errors"`
}

// BrowseResponse is one page of products.
type BrowseResponse struct {
	Products      []domprod.Product `json:"products"`
	TotalPages    int               `json:"totalPages"`
	TotalProducts int               `json:"totalProducts"`
	Page          int               `json:"page"`
	Limit         int               `json:"limit"`
}

// FiltersResponse lists the filter choices.
type FiltersResponse struct {
	PriceRanges  []string               `json:"priceRanges"`
	Ratings      []int                  `json:"ratings"`
	Availability []domprod.Availability `json:"availability"`
	Categories   facet.Set              `json:"categories"`
	Brands       facet.Set              `json:"brands"`
	Tags         facet.Set              `json:"tags"`
}

// HealthResponse reports component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func browseToResponse(res page.Result[domprod.Product]) BrowseResponse {
	return BrowseResponse{
		Products:      res.Items,
		TotalPages:    res.Meta.TotalPages,
		TotalProducts: res.Meta.Total,
		Page:          res.Meta.Page,
		Limit:         res.Meta.Limit,
	}
}

func filtersToResponse(o cataloguc.Options) FiltersResponse {
	return FiltersResponse{
		PriceRanges:  o.PriceRanges,
		Ratings:      o.Ratings,
		Availability: o.Availability,
		Categories:   o.Facets.Categories,
		Brands:       o.Facets.Brands,
		Tags:         o.Facets.Tags,
	}
}
