package storefront

import (
	"slices"

	"github.com/kailas-cloud/catalog/internal/domain/facet"
)

// State is the storefront application state. Values are never mutated in
// place: Reduce returns a new State for every event.
type State struct {
	Query         Query
	Products      []Product
	TotalPages    int
	TotalProducts int
	Facets        Facets
	Filters       Filters
	Suggestions   []Product
	Loading       bool
	Err           string

	FormOpen bool
	Editing  *Product // nil while creating
}

// NewState returns the initial state.
func NewState() State {
	return State{
		Query:    Query{Page: 1},
		Products: []Product{},
		Facets:   facet.NewCatalog(),
	}
}

// Event is something that happened to the storefront.
type Event interface {
	event()
}

// CriteriaChanged starts a new browse with q.
type CriteriaChanged struct{ Query Query }

// PageFetched delivers a browse result.
type PageFetched struct{ Page Page }

// FetchFailed reports a browse failure.
type FetchFailed struct{ Err error }

// FiltersLoaded delivers the filter options.
type FiltersLoaded struct{ Filters Filters }

// ProductAdded reports a created product.
type ProductAdded struct{ Product Product }

// ProductUpdated reports an edited product.
type ProductUpdated struct{ Product Product }

// SuggestionsChanged replaces the suggestion list.
type SuggestionsChanged struct{ Suggestions []Product }

// FormOpened opens the product form; Product is nil for a new product.
type FormOpened struct{ Product *Product }

// FormClosed closes the product form.
type FormClosed struct{}

func (CriteriaChanged) event()    {}
func (PageFetched) event()        {}
func (FetchFailed) event()        {}
func (FiltersLoaded) event()      {}
func (ProductAdded) event()       {}
func (ProductUpdated) event()     {}
func (SuggestionsChanged) event() {}
func (FormOpened) event()         {}
func (FormClosed) event()         {}

// Reduce applies e to s. Facets only ever grow: every fetched page and every
// written product is folded in.
func Reduce(s State, e Event) State {
	switch ev := e.(type) {
	case CriteriaChanged:
		s.Query = ev.Query
		s.Loading = true
		s.Err = ""
	case PageFetched:
		s.Products = slices.Clone(ev.Page.Products)
		if s.Products == nil {
			s.Products = []Product{}
		}
		s.TotalPages = ev.Page.TotalPages
		s.TotalProducts = ev.Page.TotalProducts
		s.Facets = facet.Fold(s.Facets, ev.Page.Products)
		s.Loading = false
		s.Err = ""
	case FetchFailed:
		s.Products = []Product{}
		s.TotalPages = 0
		s.TotalProducts = 0
		s.Loading = false
		s.Err = "failed to fetch products"
		if ev.Err != nil {
			s.Err = ev.Err.Error()
		}
	case FiltersLoaded:
		s.Filters = ev.Filters
		s.Facets = s.Facets.Merge(ev.Filters.Facets())
	case ProductAdded:
		s.Facets = facet.Fold(s.Facets, []Product{ev.Product})
		s.FormOpen = false
		s.Editing = nil
	case ProductUpdated:
		s.Products = slices.Clone(s.Products)
		for i := range s.Products {
			if s.Products[i].ID == ev.Product.ID {
				s.Products[i] = ev.Product
			}
		}
		s.Facets = facet.Fold(s.Facets, []Product{ev.Product})
		s.FormOpen = false
		s.Editing = nil
	case SuggestionsChanged:
		s.Suggestions = slices.Clone(ev.Suggestions)
	case FormOpened:
		s.FormOpen = true
		s.Editing = nil
		if ev.Product != nil {
			p := *ev.Product
			s.Editing = &p
		}
	case FormClosed:
		s.FormOpen = false
		s.Editing = nil
	}
	return s
}
