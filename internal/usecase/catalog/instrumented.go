package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalog/internal/domain/facet"
	domprod "github.com/kailas-cloud/catalog/internal/domain/product"
	"github.com/kailas-cloud/catalog/internal/domain/search/page"
	"github.com/kailas-cloud/catalog/internal/domain/search/query"
	"github.com/kailas-cloud/catalog/internal/metrics"
)

// InstrumentedRepository wraps Repository with query metrics and debug logging.
type InstrumentedRepository struct {
	inner  Repository
	logger *zap.Logger
}

// NewInstrumentedRepository wraps a repository with observability.
func NewInstrumentedRepository(inner Repository, logger *zap.Logger) *InstrumentedRepository {
	return &InstrumentedRepository{inner: inner, logger: logger}
}

// Search delegates to the inner repository and records duration and match count.
func (r *InstrumentedRepository) Search(
	ctx context.Context, q query.Query, offset, limit int,
) (page.Window[domprod.Product], error) {
	mode := "filter"
	if q.Ranked() {
		mode = "ranked"
	}

	start := time.Now()
	w, err := r.inner.Search(ctx, q, offset, limit)
	duration := time.Since(start)

	metrics.StoreQueryDuration.WithLabelValues("search", mode).Observe(duration.Seconds())
	if err != nil {
		metrics.StoreQueriesTotal.WithLabelValues("search", mode, "error").Inc()
		return w, err
	}
	metrics.StoreQueriesTotal.WithLabelValues("search", mode, "ok").Inc()
	metrics.BrowseMatches.Observe(float64(w.Total))

	r.logger.Debug("Search completed",
		zap.String("mode", mode),
		zap.Stringer("query", q),
		zap.Int("offset", offset),
		zap.Int("limit", limit),
		zap.Int("total", w.Total),
		zap.Duration("duration", duration),
	)
	return w, nil
}

// Facets delegates to the inner repository and records facet sizes.
func (r *InstrumentedRepository) Facets(ctx context.Context) (facet.Catalog, error) {
	start := time.Now()
	c, err := r.inner.Facets(ctx)
	metrics.StoreQueryDuration.WithLabelValues("facets", "filter").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreQueriesTotal.WithLabelValues("facets", "filter", "error").Inc()
		return c, err
	}
	metrics.StoreQueriesTotal.WithLabelValues("facets", "filter", "ok").Inc()
	metrics.FacetValues.WithLabelValues("categories").Set(float64(c.Categories.Len()))
	metrics.FacetValues.WithLabelValues("brands").Set(float64(c.Brands.Len()))
	metrics.FacetValues.WithLabelValues("tags").Set(float64(c.Tags.Len()))
	return c, nil
}
