// Package query turns parsed criteria into a store-evaluable predicate and an
// optional relevance directive. Building is pure and never touches the store.
package query

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/kailas-cloud/catalog/internal/domain/product"
	"github.com/kailas-cloud/catalog/internal/domain/search/criteria"
	"github.com/kailas-cloud/catalog/internal/domain/search/filter"
)

// Default text field weights: title first, then brand and category, then description.
const (
	DefaultTitleWeight       = 5.0
	DefaultBrandWeight       = 2.0
	DefaultCategoryWeight    = 2.0
	DefaultDescriptionWeight = 1.0
)

// FieldWeight is the relevance weight of a single text field.
type FieldWeight struct {
	Field  string
	Weight float64
}

// DefaultWeights returns the default text field weights.
func DefaultWeights() []FieldWeight {
	return []FieldWeight{
		{Field: product.FieldTitle, Weight: DefaultTitleWeight},
		{Field: product.FieldBrand, Weight: DefaultBrandWeight},
		{Field: product.FieldCategory, Weight: DefaultCategoryWeight},
		{Field: product.FieldDescription, Weight: DefaultDescriptionWeight},
	}
}

// Relevance is a weighted multi-field text search directive.
// Results are ordered by score descending, then by id ascending.
type Relevance struct {
	Text    string
	Terms   []string
	Weights []FieldWeight
}

// Query is the output of the builder.
type Query struct {
	Predicate filter.Expression
	Relevance *Relevance
}

// Ranked reports whether results are ordered by relevance score.
func (q Query) Ranked() bool { return q.Relevance != nil }

// String renders the query canonically. Equal criteria yield equal strings.
func (q Query) String() string {
	if q.Relevance == nil {
		return q.Predicate.String()
	}
	return fmt.Sprintf("%s RANK %q", q.Predicate.String(), strings.Join(q.Relevance.Terms, " "))
}

// Option configures a Builder.
type Option func(*Builder)

// WithFullText turns free text into a relevance directive with the given weights
// instead of a title substring condition. Non-positive weights are ignored.
func WithFullText(weights []FieldWeight) Option {
	return func(b *Builder) {
		b.fullText = true
		b.weights = normalizeWeights(weights)
	}
}

// Builder composes queries. It is safe for concurrent use.
type Builder struct {
	fullText bool
	weights  []FieldWeight
}

// NewBuilder creates a Builder. Without options free text is matched as a
// case-insensitive substring of the title.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{}
	for _, o := range opts {
		o(b)
	}
	if b.fullText && len(b.weights) == 0 {
		b.weights = normalizeWeights(DefaultWeights())
	}
	return b
}

// FullText reports whether the builder emits relevance directives.
func (b *Builder) FullText() bool { return b.fullText }

// Weights returns the relevance weights in use.
func (b *Builder) Weights() []FieldWeight { return slices.Clone(b.weights) }

// Build translates criteria into a query: AND over the supplied fields and an
// OR group over price buckets.
func (b *Builder) Build(c criteria.Criteria) (Query, error) {
	var must []filter.Condition

	text := strings.TrimSpace(c.Text())
	var rel *Relevance
	if text != "" {
		// Text with no rankable term, such as "!!!", is matched as a title
		// substring in either mode.
		if terms := Terms(text); b.fullText && len(terms) > 0 {
			rel = &Relevance{Text: text, Terms: terms, Weights: slices.Clone(b.weights)}
		} else {
			cond, err := filter.NewContains(product.FieldTitle, text)
			if err != nil {
				return Query{}, err
			}
			must = append(must, cond)
		}
	}

	for _, set := range []struct {
		field  string
		values []string
	}{
		{product.FieldCategory, c.Categories()},
		{product.FieldBrand, c.Brands()},
		{product.FieldAvailability, c.Availability()},
	} {
		if len(set.values) == 0 {
			continue
		}
		cond, err := filter.NewIn(set.field, set.values...)
		if err != nil {
			return Query{}, err
		}
		must = append(must, cond)
	}

	if minRating, ok := c.MinRating(); ok {
		cond, err := filter.NewRange(product.FieldRating, filter.AtLeast(minRating))
		if err != nil {
			return Query{}, err
		}
		must = append(must, cond)
	}

	buckets := c.PriceBuckets()
	should := make([]filter.Condition, 0, len(buckets))
	for _, bucket := range buckets {
		cond, err := filter.NewRange(product.FieldPrice, bucket.Range())
		if err != nil {
			return Query{}, err
		}
		should = append(should, cond)
	}

	pred, err := filter.NewExpression(nilIfEmpty(must), nilIfEmpty(should))
	if err != nil {
		return Query{}, fmt.Errorf("build predicate: %w", err)
	}
	return Query{Predicate: pred, Relevance: rel}, nil
}

// Terms splits free text into lowercase, deduplicated search terms in input order.
func Terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isTermRune(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

func isTermRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '\''
}

func normalizeWeights(in []FieldWeight) []FieldWeight {
	out := make([]FieldWeight, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, w := range in {
		if _, dup := seen[w.Field]; dup || w.Field == "" || w.Weight <= 0 {
			continue
		}
		seen[w.Field] = struct{}{}
		out = append(out, w)
	}
	slices.SortStableFunc(out, func(a, b FieldWeight) int {
		if c := cmp.Compare(b.Weight, a.Weight); c != 0 {
			return c
		}
		return cmp.Compare(a.Field, b.Field)
	})
	return out
}

func nilIfEmpty(c []filter.Condition) []filter.Condition {
	if len(c) == 0 {
		return nil
	}
	return c
}
