package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/catalog/internal/db"
	"github.com/kailas-cloud/catalog/internal/domain"
	"github.com/kailas-cloud/catalog/internal/domain/facet"
	domprod "github.com/kailas-cloud/catalog/internal/domain/product"
	"github.com/kailas-cloud/catalog/internal/domain/search/page"
	"github.com/kailas-cloud/catalog/internal/domain/search/query"
)

// Defaults for key layout.
const (
	DefaultKeyPrefix = "catalog:"
	productSegment   = "product:"
	indexSuffix      = "products:idx"
)

// store is the consumer interface for products (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONReplace(ctx context.Context, key, path string, data []byte) error
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SupportsTextSearch(ctx context.Context) bool
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	TagValues(ctx context.Context, index, field string) ([]string, error)
}

// Option configures a Repo.
type Option func(*Repo)

// WithKeyPrefix sets the key namespace (default "catalog:").
func WithKeyPrefix(prefix string) Option {
	return func(r *Repo) { r.prefix = prefix }
}

// WithTextWeights sets the TEXT field weights used for the index and for queries.
func WithTextWeights(weights []query.FieldWeight) Option {
	return func(r *Repo) { r.weights = weights }
}

// Repo stores products as JSON documents behind an FT index.
type Repo struct {
	store   store
	prefix  string
	weights []query.FieldWeight
}

// New creates a product repository.
func New(s store, opts ...Option) *Repo {
	r := &Repo{store: s, prefix: DefaultKeyPrefix, weights: query.DefaultWeights()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// IndexName returns the FT index name.
func (r *Repo) IndexName() string { return r.prefix + indexSuffix }

// Index returns the FT index definition.
func (r *Repo) Index() *db.IndexDefinition {
	return buildIndex(r.IndexName(), r.prefix+productSegment, r.weights)
}

// EnsureIndex creates the index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	err := r.store.CreateIndex(ctx, r.Index())
	if err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", r.IndexName(), err)
	}
	return nil
}

// RecreateIndex drops the index (keeping documents) and creates it again.
// A missing index is simply created.
func (r *Repo) RecreateIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.IndexName())
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.IndexName(), err)
	}
	if exists {
		err := r.store.DropIndex(ctx, r.IndexName())
		if err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return fmt.Errorf("drop index %s: %w", r.IndexName(), err)
		}
	}
	return r.EnsureIndex(ctx)
}

// SupportsTextSearch proxies the capability check from the store.
func (r *Repo) SupportsTextSearch(ctx context.Context) bool {
	return r.store.SupportsTextSearch(ctx)
}

// Insert stores a new product.
func (r *Repo) Insert(ctx context.Context, p domprod.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	key := r.key(p.ID)
	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return fmt.Errorf("json.set %s: %w", key, err)
	}
	return nil
}

// Replace overwrites an existing product; domain.ErrNotFound if it is gone.
func (r *Repo) Replace(ctx context.Context, p domprod.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	key := r.key(p.ID)
	if err := r.store.JSONReplace(ctx, key, "$", data); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("json.set %s: %w", key, err)
	}
	return nil
}

// Import stores a batch of products in one round-trip.
func (r *Repo) Import(ctx context.Context, products []domprod.Product) error {
	items := make([]db.JSONSetItem, 0, len(products))
	for _, p := range products {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal product %s: %w", p.ID, err)
		}
		items = append(items, db.JSONSetItem{Key: r.key(p.ID), Path: "$", Data: data})
	}
	if err := r.store.JSONSetMulti(ctx, items); err != nil {
		return fmt.Errorf("import %d products: %w", len(items), err)
	}
	return nil
}

// Get returns a product by ID.
func (r *Repo) Get(ctx context.Context, id string) (domprod.Product, error) {
	key := r.key(id)
	raw, err := r.store.JSONGet(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domprod.Product{}, domain.ErrNotFound
		}
		return domprod.Product{}, fmt.Errorf("json.get %s: %w", key, err)
	}
	var p domprod.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return domprod.Product{}, fmt.Errorf("unmarshal product %s: %w", id, err)
	}
	return p, nil
}

// Search evaluates the query once and returns the matching count with the window.
func (r *Repo) Search(ctx context.Context, q query.Query, offset, limit int) (page.Window[domprod.Product], error) {
	sq := &db.SearchQuery{
		IndexName: r.IndexName(),
		Filters:   q.Predicate,
		SortBy:    domprod.FieldID,
		Offset:    offset,
		Limit:     limit,
	}
	if q.Relevance != nil {
		weights := make(map[string]float64, len(q.Relevance.Weights))
		for _, w := range q.Relevance.Weights {
			weights[textAlias(w.Field)] = w.Weight
		}
		sq.Text = &db.TextMatch{Terms: q.Relevance.Terms, Weights: weights}
	}

	res, err := r.store.Search(ctx, sq)
	if err != nil {
		if errors.Is(err, db.ErrTextSearchNotSupported) {
			return page.Window[domprod.Product]{}, domain.ErrTextSearchNotSupported
		}
		return page.Window[domprod.Product]{}, fmt.Errorf("search products: %w", err)
	}

	items := make([]domprod.Product, 0, len(res.Entries))
	for _, e := range res.Entries {
		var p domprod.Product
		if err := json.Unmarshal(e.Document, &p); err != nil {
			return page.Window[domprod.Product]{}, fmt.Errorf("unmarshal %s: %w", e.Key, err)
		}
		if p.ID == "" {
			p.ID = strings.TrimPrefix(e.Key, r.prefix+productSegment)
		}
		items = append(items, p)
	}
	return page.Window[domprod.Product]{Items: items, Total: res.Total}, nil
}

// Facets returns every category, brand and tag value currently indexed.
func (r *Repo) Facets(ctx context.Context) (facet.Catalog, error) {
	index := r.IndexName()
	values := make(map[string][]string, 3)
	for _, field := range []string{domprod.FieldCategory, domprod.FieldBrand, domprod.FieldTags} {
		v, err := r.store.TagValues(ctx, index, field)
		if err != nil {
			return facet.Catalog{}, fmt.Errorf("tag values %s: %w", field, err)
		}
		values[field] = v
	}
	return facet.Catalog{
		Categories: facet.NewSet(values[domprod.FieldCategory]...),
		Brands:     facet.NewSet(values[domprod.FieldBrand]...),
		Tags:       facet.NewSet(values[domprod.FieldTags]...),
	}, nil
}

func (r *Repo) key(id string) string {
	return r.prefix + productSegment + id
}
