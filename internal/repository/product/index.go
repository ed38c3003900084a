package product

import (
	"github.com/kailas-cloud/catalog/internal/db"
	domprod "github.com/kailas-cloud/catalog/internal/domain/product"
	"github.com/kailas-cloud/catalog/internal/domain/search/query"
)

// Text aliases for fields that are also indexed as TAG under their own name.
const (
	brandTextAlias    = "brand_text"
	categoryTextAlias = "category_text"
)

// textAlias maps a product field to its TEXT alias in the index.
func textAlias(field string) string {
	switch field {
	case domprod.FieldBrand:
		return brandTextAlias
	case domprod.FieldCategory:
		return categoryTextAlias
	}
	return field
}

// buildIndex describes the product index on JSON documents.
// Tag values are case-sensitive so facet values keep their original spelling.
func buildIndex(name, prefix string, weights []query.FieldWeight) *db.IndexDefinition {
	w := make(map[string]float64, len(weights))
	for _, fw := range weights {
		w[fw.Field] = fw.Weight
	}
	weight := func(field string) float64 {
		if v, ok := w[field]; ok {
			return v
		}
		return 1
	}

	return db.NewIndex(name).
		OnJSON().
		Prefix(prefix).
		TagWithOpts("$."+domprod.FieldID, "", true).As(domprod.FieldID).Sortable().
		TagWithOpts("$."+domprod.FieldCategory, "", true).As(domprod.FieldCategory).
		TagWithOpts("$."+domprod.FieldBrand, "", true).As(domprod.FieldBrand).
		TagWithOpts("$."+domprod.FieldAvailability, "", true).As(domprod.FieldAvailability).
		TagWithOpts("$."+domprod.FieldTags+"[*]", "", true).As(domprod.FieldTags).
		Numeric("$."+domprod.FieldRating).As(domprod.FieldRating).
		Numeric("$."+domprod.FieldPrice).As(domprod.FieldPrice).
		WeightedText("$."+domprod.FieldTitle, weight(domprod.FieldTitle)).As(domprod.FieldTitle).
		WeightedText("$."+domprod.FieldBrand, weight(domprod.FieldBrand)).As(brandTextAlias).
		WeightedText("$."+domprod.FieldCategory, weight(domprod.FieldCategory)).As(categoryTextAlias).
		WeightedText("$."+domprod.FieldDescription, weight(domprod.FieldDescription)).As(domprod.FieldDescription).
		MustBuild()
}
