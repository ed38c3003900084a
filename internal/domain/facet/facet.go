// Package facet accumulates the known values of filterable attributes.
//
// A Catalog only ever grows: values observed in earlier batches stay visible
// even when a later, narrower result no longer contains them.
package facet

import (
	"encoding/json"
	"slices"
)

// Set is an unordered set of non-empty strings.
type Set map[string]struct{}

// NewSet builds a set from values, skipping empty strings.
func NewSet(values ...string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		if v != "" {
			s[v] = struct{}{}
		}
	}
	return s
}

// Has reports membership.
func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of values.
func (s Set) Len() int { return len(s) }

// Sorted returns the values in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Union returns a new set holding the values of both sets.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for v := range s {
		out[v] = struct{}{}
	}
	for v := range other {
		out[v] = struct{}{}
	}
	return out
}

// MarshalJSON renders the set as a sorted array.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON reads an array of strings.
func (s *Set) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = NewSet(values...)
	return nil
}

// Values are the facet-bearing fields of one record.
type Values struct {
	Category string
	Brand    string
	Tags     []string
}

// Faceted is implemented by anything that carries facet values.
type Faceted interface {
	FacetValues() Values
}

// Catalog holds the known categories, brands and tags.
type Catalog struct {
	Categories Set `json:"categories"`
	Brands     Set `json:"brands"`
	Tags       Set `json:"tags"`
}

// NewCatalog returns an empty catalog.
func NewCatalog() Catalog {
	return Catalog{Categories: Set{}, Brands: Set{}, Tags: Set{}}
}

// Merge returns the union of two catalogs.
func (c Catalog) Merge(other Catalog) Catalog {
	return Catalog{
		Categories: c.Categories.Union(other.Categories),
		Brands:     c.Brands.Union(other.Brands),
		Tags:       c.Tags.Union(other.Tags),
	}
}

// Observe returns a catalog extended with a single record's values.
func (c Catalog) Observe(v Values) Catalog {
	return c.Merge(Catalog{
		Categories: NewSet(v.Category),
		Brands:     NewSet(v.Brand),
		Tags:       NewSet(v.Tags...),
	})
}

// Equal reports whether both catalogs hold the same values.
func (c Catalog) Equal(other Catalog) bool {
	return setEqual(c.Categories, other.Categories) &&
		setEqual(c.Brands, other.Brands) &&
		setEqual(c.Tags, other.Tags)
}

// Fold folds a batch into the catalog. The input catalog is never modified.
// Fold is commutative and idempotent over batches.
func Fold[T Faceted](c Catalog, batch []T) Catalog {
	add := Catalog{Categories: Set{}, Brands: Set{}, Tags: Set{}}
	for _, item := range batch {
		v := item.FacetValues()
		if v.Category != "" {
			add.Categories[v.Category] = struct{}{}
		}
		if v.Brand != "" {
			add.Brands[v.Brand] = struct{}{}
		}
		for _, t := range v.Tags {
			if t != "" {
				add.Tags[t] = struct{}{}
			}
		}
	}
	return c.Merge(add)
}

func setEqual(a, b Set) bool {
	if len(a) != len(b) {
		return false
	}
	for v := range a {
		if !b.Has(v) {
			return false
		}
	}
	return true
}
