package catalog

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalog/internal/domain"
	"github.com/kailas-cloud/catalog/internal/domain/facet"
	domprod "github.com/kailas-cloud/catalog/internal/domain/product"
	"github.com/kailas-cloud/catalog/internal/domain/search/criteria"
	"github.com/kailas-cloud/catalog/internal/domain/search/page"
	"github.com/kailas-cloud/catalog/internal/domain/search/query"
	"github.com/kailas-cloud/catalog/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterCatalogMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockRepo struct {
	searchFn func(ctx context.Context, q query.Query, offset, limit int) (page.Window[domprod.Product], error)
	facetsFn func(ctx context.Context) (facet.Catalog, error)
	queries  []query.Query
}

func (m *mockRepo) Search(
	ctx context.Context, q query.Query, offset, limit int,
) (page.Window[domprod.Product], error) {
	m.queries = append(m.queries, q)
	if m.searchFn != nil {
		return m.searchFn(ctx, q, offset, limit)
	}
	return page.Window[domprod.Product]{}, nil
}

func (m *mockRepo) Facets(ctx context.Context) (facet.Catalog, error) {
	if m.facetsFn != nil {
		return m.facetsFn(ctx)
	}
	return facet.NewCatalog(), nil
}

func products(n int) []domprod.Product {
	out := make([]domprod.Product, n)
	for i := range out {
		out[i] = domprod.Product{ID: string(rune('a' + i))}
	}
	return out
}

// --- Browse ---

func TestBrowse_PageMetadata(t *testing.T) {
	repo := &mockRepo{}
	repo.searchFn = func(_ context.Context, _ query.Query, offset, limit int) (page.Window[domprod.Product], error) {
		if offset != 20 || limit != 10 {
			t.Errorf("window = %d/%d, want 20/10", offset, limit)
		}
		return page.Window[domprod.Product]{Items: products(5), Total: 25}, nil
	}
	svc := New(repo, nil, zap.NewNop())

	res, err := svc.Browse(context.Background(), criteria.Raw{}, svc.Request(3, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Meta.TotalPages != 3 || res.Meta.Total != 25 || len(res.Items) != 5 {
		t.Fatalf("unexpected page: %+v", res.Meta)
	}
	if len(repo.queries) != 1 {
		t.Fatalf("expected one store evaluation, got %d", len(repo.queries))
	}
}

func TestBrowse_BuildsPredicate(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo, nil, zap.NewNop())

	raw := criteria.Raw{Categories: "laptops", PriceRange: "0-50,1000+", Ratings: "4,3"}
	if _, err := svc.Browse(context.Background(), raw, svc.Request(1, 10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `category IN ["laptops"] AND rating [3, +inf) AND (price [0, 50] OR price [1000, +inf))`
	if got := repo.queries[0].String(); got != want {
		t.Errorf("query = %s\nwant    %s", got, want)
	}
}

func TestBrowse_ClampsLimit(t *testing.T) {
	repo := &mockRepo{}
	repo.searchFn = func(_ context.Context, _ query.Query, _, limit int) (page.Window[domprod.Product], error) {
		if limit != 50 {
			t.Errorf("limit = %d, want 50", limit)
		}
		return page.Window[domprod.Product]{}, nil
	}
	svc := New(repo, nil, zap.NewNop()).WithMaxLimit(50)

	res, err := svc.Browse(context.Background(), criteria.Raw{}, svc.Request(0, 500))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Meta.Page != 1 || res.Meta.TotalPages != 0 || res.Items == nil {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestBrowse_StoreErrorIsTransient(t *testing.T) {
	repo := &mockRepo{}
	repo.searchFn = func(context.Context, query.Query, int, int) (page.Window[domprod.Product], error) {
		return page.Window[domprod.Product]{Items: products(3), Total: 3}, errors.New("connection refused")
	}
	svc := New(repo, nil, zap.NewNop())

	res, err := svc.Browse(context.Background(), criteria.Raw{}, page.Default())
	if !errors.Is(err, domain.ErrTransientFetch) {
		t.Fatalf("expected ErrTransientFetch, got %v", err)
	}
	if res.Items != nil {
		t.Fatal("expected no partial data")
	}
}

func TestBrowse_FallsBackWithoutFullText(t *testing.T) {
	repo := &mockRepo{}
	repo.searchFn = func(_ context.Context, q query.Query, _, _ int) (page.Window[domprod.Product], error) {
		if q.Ranked() {
			return page.Window[domprod.Product]{}, domain.ErrTextSearchNotSupported
		}
		return page.Window[domprod.Product]{Items: products(1), Total: 1}, nil
	}
	svc := New(repo, query.NewBuilder(query.WithFullText(nil)), zap.NewNop())

	res, err := svc.Browse(context.Background(), criteria.Raw{Q: "phone"}, page.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Meta.Total != 1 {
		t.Fatalf("total = %d", res.Meta.Total)
	}
	if len(repo.queries) != 2 || repo.queries[1].Ranked() {
		t.Fatalf("expected a ranked attempt then a substring query, got %v", repo.queries)
	}
}

func TestBrowse_TooManyFilterValues(t *testing.T) {
	repo := &mockRepo{}
	svc := New(repo, nil, zap.NewNop())

	buckets := make([]string, 40)
	for i := range buckets {
		buckets[i] = strconv.Itoa(i) + "-1000"
	}
	raw := criteria.Raw{PriceRange: strings.Join(buckets, ",")}
	_, err := svc.Browse(context.Background(), raw, page.Default())
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(repo.queries) != 0 {
		t.Fatal("store must not be queried")
	}
}

// --- Filters ---

func TestFilters(t *testing.T) {
	repo := &mockRepo{}
	repo.facetsFn = func(context.Context) (facet.Catalog, error) {
		return facet.Catalog{Brands: facet.NewSet("Apple", "Essence")}, nil
	}
	svc := New(repo, nil, zap.NewNop())

	opts, err := svc.Filters(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(opts.PriceRanges) != 5 || opts.PriceRanges[4] != "1000+" {
		t.Errorf("price ranges = %v", opts.PriceRanges)
	}
	if len(opts.Ratings) != 5 || opts.Ratings[0] != 5 {
		t.Errorf("ratings = %v", opts.Ratings)
	}
	if len(opts.Availability) != 3 {
		t.Errorf("availability = %v", opts.Availability)
	}
	if opts.Facets.Brands.Len() != 2 || opts.Facets.Categories == nil || opts.Facets.Tags == nil {
		t.Errorf("facets = %+v", opts.Facets)
	}
}

func TestFilters_StoreError(t *testing.T) {
	repo := &mockRepo{}
	repo.facetsFn = func(context.Context) (facet.Catalog, error) {
		return facet.Catalog{}, errors.New("timeout")
	}
	svc := New(repo, nil, zap.NewNop())

	if _, err := svc.Filters(context.Background()); !errors.Is(err, domain.ErrTransientFetch) {
		t.Fatalf("expected ErrTransientFetch, got %v", err)
	}
}

// --- Instrumented ---

func TestInstrumentedRepository_Delegates(t *testing.T) {
	inner := &mockRepo{}
	inner.searchFn = func(context.Context, query.Query, int, int) (page.Window[domprod.Product], error) {
		return page.Window[domprod.Product]{Items: products(2), Total: 2}, nil
	}
	r := NewInstrumentedRepository(inner, zap.NewNop())

	w, err := r.Search(context.Background(), query.Query{}, 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Total != 2 {
		t.Fatalf("total = %d", w.Total)
	}

	inner.facetsFn = func(context.Context) (facet.Catalog, error) { return facet.Catalog{}, errors.New("boom") }
	if _, err := r.Facets(context.Background()); err == nil {
		t.Fatal("expected error to pass through")
	}
}
