package catalog

import (
	"context"

	"github.com/kailas-cloud/catalog/internal/domain/facet"
	domprod "github.com/kailas-cloud/catalog/internal/domain/product"
	"github.com/kailas-cloud/catalog/internal/domain/search/page"
	"github.com/kailas-cloud/catalog/internal/domain/search/query"
)

// Repository defines the read contract for browsing products.
type Repository interface {
	// Search evaluates q once; the count and the window come from one snapshot.
	Search(ctx context.Context, q query.Query, offset, limit int) (page.Window[domprod.Product], error)
	Facets(ctx context.Context) (facet.Catalog, error)
}
