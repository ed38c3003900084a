package product

import (
	"context"

	domprod "github.com/kailas-cloud/catalog/internal/domain/product"
)

// Repository defines the storage contract for single products.
type Repository interface {
	Insert(ctx context.Context, p domprod.Product) error
	Get(ctx context.Context, id string) (domprod.Product, error)
	Replace(ctx context.Context, p domprod.Product) error
}

// Publisher announces product changes. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, e domprod.Event) error
}
