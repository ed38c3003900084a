// Package criteria turns raw, string-typed browse parameters into typed filter criteria.
//
// Parsing is lenient: a malformed rating or price token is dropped and the
// rest of the request still applies. Multiple ratings collapse to their
// minimum ("at least the lowest selected"), not to a set of exact ratings.
package criteria

import (
	"slices"
	"strings"
)

// Raw holds browse parameters as received. List values are comma-joined.
type Raw struct {
	Q            string
	Categories   string
	Brands       string
	Availability string
	Ratings      string
	PriceRange   string
}

// Criteria is the parsed, immutable filter. Set-valued fields are sorted and
// deduplicated, so equivalent inputs produce equal values.
type Criteria struct {
	text         string
	categories   []string
	brands       []string
	availability []string
	minRating    *float64
	buckets      []PriceBucket
}

// Parse builds Criteria from raw parameters. It never fails.
func Parse(raw Raw) Criteria {
	var c Criteria
	if strings.TrimSpace(raw.Q) != "" {
		c.text = raw.Q
	}
	c.categories = splitSet(raw.Categories)
	c.brands = splitSet(raw.Brands)
	c.availability = splitSet(raw.Availability)
	c.minRating = minRating(raw.Ratings)
	c.buckets = parseBuckets(raw.PriceRange)
	return c
}

// Text returns the free-text query, empty when absent.
func (c Criteria) Text() string { return c.text }

// Categories returns the category set, nil when absent.
func (c Criteria) Categories() []string { return c.categories }

// Brands returns the brand set, nil when absent.
func (c Criteria) Brands() []string { return c.brands }

// Availability returns the availability set, nil when absent.
func (c Criteria) Availability() []string { return c.availability }

// MinRating returns the rating threshold and whether one was given.
func (c Criteria) MinRating() (float64, bool) {
	if c.minRating == nil {
		return 0, false
	}
	return *c.minRating, true
}

// PriceBuckets returns the OR-combined buckets, nil when absent.
func (c Criteria) PriceBuckets() []PriceBucket { return c.buckets }

// IsEmpty reports whether no filter was supplied.
func (c Criteria) IsEmpty() bool {
	return c.text == "" && c.categories == nil && c.brands == nil &&
		c.availability == nil && c.minRating == nil && c.buckets == nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func splitSet(s string) []string {
	out := splitList(s)
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func minRating(s string) *float64 {
	var lowest *float64
	for _, tok := range splitList(s) {
		n, err := parseNumber(tok)
		if err != nil {
			continue
		}
		if lowest == nil || n < *lowest {
			lowest = &n
		}
	}
	return lowest
}

func parseBuckets(s string) []PriceBucket {
	var out []PriceBucket
	for _, tok := range splitList(s) {
		b, err := ParseBucket(tok)
		if err != nil {
			continue
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil
	}
	slices.SortFunc(out, compareBuckets)
	return slices.Compact(out)
}
