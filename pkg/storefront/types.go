package storefront

import (
	"github.com/kailas-cloud/catalog/internal/domain/facet"
	domprod "github.com/kailas-cloud/catalog/internal/domain/product"
)

// Product is a catalog record as served by the API.
type Product = domprod.Product

// Patch is a partial product update; nil fields are left unchanged.
type Patch = domprod.Patch

// Availability is a product stock status.
type Availability = domprod.Availability

// Availability statuses.
const (
	InStock    = domprod.InStock
	LowStock   = domprod.LowStock
	OutOfStock = domprod.OutOfStock
)

// Facets is the accumulated set of known categories, brands and tags.
type Facets = facet.Catalog

// Query is a browse request. Empty fields are omitted from the request.
type Query struct {
	Text         string   `schema:"q,omitempty"`
	Categories   []string `schema:"categories,omitempty"`
	Brands       []string `schema:"brands,omitempty"`
	Availability []string `schema:"availability,omitempty"`
	Ratings      []int    `schema:"ratings,omitempty"`
	PriceRanges  []string `schema:"priceRange,omitempty"`
	Page         int      `schema:"page,omitempty"`
	Limit        int      `schema:"limit,omitempty"`
}

// Page is one page of browse results.
type Page struct {
	Products      []Product `json:"products"`
	TotalPages    int       `json:"totalPages"`
	TotalProducts int       `json:"totalProducts"`
	Page          int       `json:"page"`
	Limit         int       `json:"limit"`
}

// Filters are the filter options offered by the API.
type Filters struct {
	PriceRanges  []string       `json:"priceRanges"`
	Ratings      []int          `json:"ratings"`
	Availability []Availability `json:"availability"`
	Categories   facet.Set      `json:"categories"`
	Brands       facet.Set      `json:"brands"`
	Tags         facet.Set      `json:"tags"`
}

// Facets returns the facet part of the filter options.
func (f Filters) Facets() Facets {
	return facet.NewCatalog().Merge(Facets{
		Categories: f.Categories,
		Brands:     f.Brands,
		Tags:       f.Tags,
	})
}
