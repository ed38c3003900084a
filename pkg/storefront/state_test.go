package storefront

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/catalog/internal/domain/facet"
)

func TestReduce_PageFetchedFoldsFacets(t *testing.T) {
	s := NewState()
	s = Reduce(s, CriteriaChanged{Query: Query{Categories: []string{"laptops"}, Page: 1}})
	if !s.Loading {
		t.Fatal("expected loading after criteria change")
	}

	s = Reduce(s, PageFetched{Page: Page{
		Products:      []Product{product(1, "laptops", "Apple", 10), product(2, "phones", "Dell", 20)},
		TotalPages:    1,
		TotalProducts: 2,
	}})
	// A narrower page must not drop previously seen facets.
	s = Reduce(s, PageFetched{Page: Page{
		Products:      []Product{product(3, "laptops", "Asus", 30)},
		TotalPages:    1,
		TotalProducts: 1,
	}})

	if s.Loading || s.TotalProducts != 1 || len(s.Products) != 1 {
		t.Errorf("state = %+v", s)
	}
	want := facet.Catalog{
		Categories: facet.NewSet("laptops", "phones"),
		Brands:     facet.NewSet("Apple", "Dell", "Asus"),
		Tags:       facet.NewSet("laptops-tag", "phones-tag"),
	}
	if !s.Facets.Equal(want) {
		t.Errorf("facets = %+v", s.Facets)
	}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	s := NewState()
	s = Reduce(s, PageFetched{Page: Page{Products: []Product{product(1, "laptops", "Apple", 10)}}})

	updated := product(1, "laptops", "Apple", 99)
	next := Reduce(s, ProductUpdated{Product: updated})

	if s.Products[0].Price != 10 {
		t.Error("input state was mutated")
	}
	if next.Products[0].Price != 99 {
		t.Errorf("product not replaced: %+v", next.Products[0])
	}
	if s.Facets.Brands.Len() != 1 || next.Facets.Brands.Len() != 1 {
		t.Errorf("facets = %+v / %+v", s.Facets, next.Facets)
	}
}

func TestReduce_ProductWritesExtendFacetsAndCloseForm(t *testing.T) {
	s := Reduce(NewState(), FormOpened{})
	if !s.FormOpen || s.Editing != nil {
		t.Fatalf("form = %v, editing = %v", s.FormOpen, s.Editing)
	}

	s = Reduce(s, ProductAdded{Product: product(1, "tablets", "Huawei", 300)})
	if s.FormOpen || !s.Facets.Categories.Has("tablets") || !s.Facets.Brands.Has("Huawei") {
		t.Errorf("state = %+v", s)
	}

	p := product(1, "tablets", "Huawei", 300)
	s = Reduce(s, FormOpened{Product: &p})
	if s.Editing == nil || s.Editing == &p {
		t.Fatal("editing must hold a copy of the product")
	}

	p.Category = "wearables"
	s = Reduce(s, ProductUpdated{Product: p})
	if s.FormOpen || s.Editing != nil || !s.Facets.Categories.Has("wearables") || !s.Facets.Categories.Has("tablets") {
		t.Errorf("state = %+v", s)
	}
}

func TestReduce_FetchFailedClearsProducts(t *testing.T) {
	s := Reduce(NewState(), PageFetched{Page: Page{
		Products:      []Product{product(1, "laptops", "Apple", 10)},
		TotalProducts: 1,
		TotalPages:    1,
	}})
	s = Reduce(s, FetchFailed{Err: errors.New("failed to fetch products")})

	if len(s.Products) != 0 || s.TotalProducts != 0 || s.Err == "" {
		t.Errorf("state = %+v", s)
	}
	if !s.Facets.Categories.Has("laptops") {
		t.Error("facets must survive a failed fetch")
	}
}

func TestReduce_FiltersAndSuggestions(t *testing.T) {
	s := Reduce(NewState(), FiltersLoaded{Filters: Filters{
		PriceRanges: []string{"0-50"},
		Categories:  facet.NewSet("beauty"),
		Tags:        facet.NewSet("mascara"),
	}})
	if !s.Facets.Categories.Has("beauty") || !s.Facets.Tags.Has("mascara") || len(s.Filters.PriceRanges) != 1 {
		t.Errorf("state = %+v", s)
	}

	s = Reduce(s, SuggestionsChanged{Suggestions: titled("a", "b")})
	if len(s.Suggestions) != 2 {
		t.Errorf("suggestions = %v", s.Suggestions)
	}
	s = Reduce(s, FormClosed{})
	if s.FormOpen {
		t.Error("form must be closed")
	}
}
