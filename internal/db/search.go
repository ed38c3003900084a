package db

import (
	"errors"

	"github.com/kailas-cloud/catalog/internal/domain/search/filter"
)

// TextMatch is a weighted full-text directive over the TEXT fields of an index.
// Every term must appear in at least one TEXT field.
type TextMatch struct {
	Terms []string
	// Weights by field alias. Stores with schema-level weights may ignore it.
	Weights map[string]float64
}

// SearchQuery is the input of Searcher.Search.
type SearchQuery struct {
	IndexName string
	Filters   filter.Expression
	Text      *TextMatch
	// SortBy orders unranked results ascending by this field. Ranked results
	// are ordered by score descending, ties by SortBy ascending.
	SortBy string
	Offset int
	Limit  int
}

// Validate checks the query window and index name.
func (q *SearchQuery) Validate() error {
	if q.IndexName == "" {
		return errors.New("index name is required")
	}
	if q.Offset < 0 {
		return errors.New("offset must be non-negative")
	}
	if q.Limit < 0 {
		return errors.New("limit must be non-negative")
	}
	if q.Text != nil && len(q.Text.Terms) == 0 {
		return errors.New("text match requires at least one term")
	}
	return nil
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key   string
	Score float64
	// Document is the raw JSON of the stored document.
	Document []byte
}
