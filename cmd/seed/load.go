package main

import (
	"encoding/json"
	"fmt"
	"io"

	domprod "github.com/kailas-cloud/catalog/internal/domain/product"
)

// loadProducts decodes a JSON array of products, assigning ids where missing.
// Every record is validated; the first invalid one aborts the load.
func loadProducts(r io.Reader, newID func() string) ([]domprod.Product, error) {
	var products []domprod.Product
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, fmt.Errorf("decoding products: %w", err)
	}

	seen := make(map[string]struct{}, len(products))
	for i := range products {
		p := &products[i]
		if p.ID == "" {
			p.ID = newID()
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("product %d: duplicate id %s", i, p.ID)
		}
		seen[p.ID] = struct{}{}

		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("product %d (%s): %w", i, p.Title, err)
		}
	}
	return products, nil
}

func chunks[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var out [][]T
	for size > 0 && len(items) > 0 {
		n := min(size, len(items))
		out = append(out, items[:n])
		items = items[n:]
	}
	return out
}
