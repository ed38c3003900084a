package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/kailas-cloud/catalog/internal/db"
	"github.com/kailas-cloud/catalog/internal/domain/search/filter"
)

const prefix = "p:"

func testIndex() *db.IndexDefinition {
	return db.NewIndex("products").
		OnJSON().
		Prefix(prefix).
		TagWithOpts("$.id", "", true).As("id").Sortable().
		TagWithOpts("$.category", "", true).As("category").
		TagWithOpts("$.brand", "", false).As("brand").
		TagWithOpts("$.tags[*]", "", true).As("tags").
		Numeric("$.price").As("price").
		Numeric("$.rating").As("rating").
		WeightedText("$.title", 5).As("title").
		WeightedText("$.description", 1).As("description").
		MustBuild()
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := New(opts...)
	ctx := context.Background()
	if err := s.CreateIndex(ctx, testIndex()); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	docs := []string{
		`{"id":"a","category":"shoes","brand":"Northwind","tags":["running"],"price":45,"rating":4.5,"title":"Trail Runner","description":"grippy sole"}`,
		`{"id":"b","category":"shoes","brand":"Contoso","tags":["outdoor"],"price":75,"rating":2.9,"title":"Hiking Boot","description":"for trail runners"}`,
		`{"id":"c","category":"bags","brand":"contoso","price":1200,"rating":3.2,"title":"Travel Duffel","description":"carry on trail"}`,
	}
	for i, doc := range docs {
		key := fmt.Sprintf("%s%c", prefix, 'a'+i)
		if err := s.JSONSet(ctx, key, "$", []byte(doc)); err != nil {
			t.Fatalf("JSONSet: %v", err)
		}
	}
	// outside the index prefix
	if err := s.JSONSet(ctx, "other:x", "$", []byte(`{"id":"x","category":"shoes"}`)); err != nil {
		t.Fatalf("JSONSet: %v", err)
	}
	return s
}

func keys(res *db.SearchResult) []string {
	out := make([]string, len(res.Entries))
	for i, e := range res.Entries {
		out[i] = e.Key
	}
	return out
}

func mustExpr(t *testing.T, must, should []filter.Condition) filter.Expression {
	t.Helper()
	e, err := filter.NewExpression(must, should)
	if err != nil {
		t.Fatalf("NewExpression: %v", err)
	}
	return e
}

func TestSearch_MatchAllSortedByID(t *testing.T) {
	s := newTestStore(t)
	res, err := s.Search(context.Background(), &db.SearchQuery{IndexName: "products", SortBy: "id", Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 3 {
		t.Errorf("total = %d, want 3", res.Total)
	}
	if !slices.Equal(keys(res), []string{"p:a", "p:b", "p:c"}) {
		t.Errorf("keys = %v", keys(res))
	}
}

func TestSearch_PriceBucketsAndRating(t *testing.T) {
	s := newTestStore(t)
	rating, _ := filter.NewRange("rating", filter.AtLeast(3))
	low, _ := filter.NewRange("price", filter.Between(0, 50))
	high, _ := filter.NewRange("price", filter.AtLeast(1000))

	res, err := s.Search(context.Background(), &db.SearchQuery{
		IndexName: "products",
		Filters:   mustExpr(t, []filter.Condition{rating}, []filter.Condition{low, high}),
		SortBy:    "id",
		Limit:     10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(keys(res), []string{"p:a", "p:c"}) {
		t.Errorf("keys = %v", keys(res))
	}
}

func TestSearch_TagMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// brand is case-insensitive, category is case-sensitive
	brand, _ := filter.NewIn("brand", "CONTOSO")
	res, err := s.Search(ctx, &db.SearchQuery{
		IndexName: "products", Filters: mustExpr(t, []filter.Condition{brand}, nil), SortBy: "id", Limit: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(keys(res), []string{"p:b", "p:c"}) {
		t.Errorf("brand keys = %v", keys(res))
	}

	cat, _ := filter.NewIn("category", "Shoes")
	res, err = s.Search(ctx, &db.SearchQuery{
		IndexName: "products", Filters: mustExpr(t, []filter.Condition{cat}, nil), Limit: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 0 {
		t.Errorf("case-sensitive tag matched: %v", keys(res))
	}

	tag, _ := filter.NewIn("tags", "outdoor")
	res, _ = s.Search(ctx, &db.SearchQuery{
		IndexName: "products", Filters: mustExpr(t, []filter.Condition{tag}, nil), Limit: 10,
	})
	if !slices.Equal(keys(res), []string{"p:b"}) {
		t.Errorf("array tag keys = %v", keys(res))
	}
}

func TestSearch_Contains(t *testing.T) {
	s := newTestStore(t)
	sub, _ := filter.NewContains("title", "RUN")
	res, err := s.Search(context.Background(), &db.SearchQuery{
		IndexName: "products", Filters: mustExpr(t, []filter.Condition{sub}, nil), Limit: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(keys(res), []string{"p:a"}) {
		t.Errorf("keys = %v", keys(res))
	}
}

// Count and window come from one evaluation; pages past the end are empty.
func TestSearch_Window(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.Search(ctx, &db.SearchQuery{IndexName: "products", SortBy: "id", Offset: 2, Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 3 || !slices.Equal(keys(res), []string{"p:c"}) {
		t.Errorf("total=%d keys=%v", res.Total, keys(res))
	}

	res, err = s.Search(ctx, &db.SearchQuery{IndexName: "products", Offset: 10, Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 3 || len(res.Entries) != 0 {
		t.Errorf("total=%d entries=%d", res.Total, len(res.Entries))
	}
}

func TestSearch_TextNotSupported(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Search(context.Background(), &db.SearchQuery{
		IndexName: "products", Text: &db.TextMatch{Terms: []string{"trail"}}, Limit: 10,
	})
	if !errors.Is(err, db.ErrTextSearchNotSupported) {
		t.Errorf("expected ErrTextSearchNotSupported, got %v", err)
	}
	if s.SupportsTextSearch(context.Background()) {
		t.Error("text search should be off by default")
	}
}

func TestSearch_WeightedText(t *testing.T) {
	s := newTestStore(t, WithTextSearch())
	res, err := s.Search(context.Background(), &db.SearchQuery{
		IndexName: "products",
		Text:      &db.TextMatch{Terms: []string{"trail"}},
		SortBy:    "id",
		Limit:     10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// title hit (5) beats description hits (1); equal scores fall back to id
	if !slices.Equal(keys(res), []string{"p:a", "p:b", "p:c"}) {
		t.Errorf("keys = %v", keys(res))
	}
	if res.Entries[0].Score != 5 || res.Entries[1].Score != 1 {
		t.Errorf("scores = %v, %v", res.Entries[0].Score, res.Entries[1].Score)
	}
}

func TestSearch_TextAllTermsRequired(t *testing.T) {
	s := newTestStore(t, WithTextSearch())
	res, err := s.Search(context.Background(), &db.SearchQuery{
		IndexName: "products",
		Text: &db.TextMatch{
			Terms:   []string{"trail", "runners"},
			Weights: map[string]float64{"description": 10},
		},
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(keys(res), []string{"p:b"}) {
		t.Errorf("keys = %v", keys(res))
	}
	if res.Entries[0].Score != 20 {
		t.Errorf("score = %v, want query weights to override schema weights", res.Entries[0].Score)
	}
}

func TestSearch_UnknownField(t *testing.T) {
	s := newTestStore(t)
	c, _ := filter.NewIn("color", "red")
	_, err := s.Search(context.Background(), &db.SearchQuery{
		IndexName: "products", Filters: mustExpr(t, []filter.Condition{c}, nil), Limit: 10,
	})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Errorf("expected db.Error, got %v", err)
	}
}

func TestSearch_UnknownIndex(t *testing.T) {
	s := New()
	_, err := s.Search(context.Background(), &db.SearchQuery{IndexName: "nope", Limit: 10})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestTagValues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	brands, err := s.TagValues(ctx, "products", "brand")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(brands, []string{"contoso", "northwind"}) {
		t.Errorf("brands = %v", brands)
	}

	tags, err := s.TagValues(ctx, "products", "tags")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(tags, []string{"outdoor", "running"}) {
		t.Errorf("tags = %v", tags)
	}

	if _, err := s.TagValues(ctx, "products", "price"); err == nil {
		t.Error("expected error for numeric field")
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.JSONGet(ctx, "k"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if err := s.JSONReplace(ctx, "k", "$", []byte(`{"a":1}`)); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("replace of missing key: %v", err)
	}
	if err := s.JSONSet(ctx, "k", "$", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("JSONSet: %v", err)
	}
	if err := s.JSONReplace(ctx, "k", "$", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("JSONReplace: %v", err)
	}
	data, err := s.JSONGet(ctx, "k")
	if err != nil || string(data) != `{"a":2}` {
		t.Errorf("JSONGet = %s, %v", data, err)
	}
	if err := s.JSONSet(ctx, "k", "$.a", []byte(`3`)); err == nil {
		t.Error("expected error for nested path")
	}
	if err := s.JSONSet(ctx, "k", "$", []byte(`not json`)); err == nil {
		t.Error("expected error for invalid json")
	}
}

func TestJSONSetMulti_AllOrNothing(t *testing.T) {
	s := New()
	ctx := context.Background()
	err := s.JSONSetMulti(ctx, []db.JSONSetItem{
		{Key: "k1", Path: "$", Data: []byte(`{}`)},
		{Key: "k2", Path: "$", Data: []byte(`{`)},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, err := s.JSONGet(ctx, "k1"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Error("no document should be stored when one item fails")
	}
}

func TestIndexLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateIndex(ctx, testIndex()); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if err := s.CreateIndex(ctx, testIndex()); !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
	if ok, _ := s.IndexExists(ctx, "products"); !ok {
		t.Error("index should exist")
	}
	if err := s.DropIndex(ctx, "products"); err != nil {
		t.Fatalf("DropIndex: %v", err)
	}
	if err := s.DropIndex(ctx, "products"); !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}

	bad := &db.IndexDefinition{Name: "bad", Fields: []db.IndexField{{Name: "title", Type: db.IndexFieldText}}}
	if err := s.CreateIndex(ctx, bad); err == nil {
		t.Error("expected error for non-JSON path")
	}
}

func TestClose(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.WaitForReady(ctx, 0); err != nil {
		t.Fatalf("WaitForReady: %v", err)
	}
	s.Close()
	if err := s.Ping(ctx); err == nil {
		t.Error("expected error after Close")
	}
}
