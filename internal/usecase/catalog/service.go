package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalog/internal/domain"
	"github.com/kailas-cloud/catalog/internal/domain/facet"
	domprod "github.com/kailas-cloud/catalog/internal/domain/product"
	"github.com/kailas-cloud/catalog/internal/domain/search/criteria"
	"github.com/kailas-cloud/catalog/internal/domain/search/page"
	"github.com/kailas-cloud/catalog/internal/domain/search/query"
)

// PriceBuckets are the price ranges offered in the filter panel.
var PriceBuckets = []string{"0-50", "50-100", "100-500", "500-1000", "1000+"}

// Ratings are the minimum-rating options offered in the filter panel.
var Ratings = []int{5, 4, 3, 2, 1}

// Options are the filter choices a client can offer.
type Options struct {
	PriceRanges  []string
	Ratings      []int
	Availability []domprod.Availability
	Facets       facet.Catalog
}

// Service answers browse and filter-option requests.
type Service struct {
	repo     Repository
	builder  *query.Builder
	fallback *query.Builder
	maxLimit int
	logger   *zap.Logger
}

// New creates a catalog service. builder decides between substring and
// ranked free-text matching.
func New(repo Repository, builder *query.Builder, logger *zap.Logger) *Service {
	if builder == nil {
		builder = query.NewBuilder()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		builder:  builder,
		fallback: query.NewBuilder(),
		maxLimit: page.MaxLimit,
		logger:   logger,
	}
}

// WithMaxLimit configures the page size ceiling.
func (s *Service) WithMaxLimit(maxLimit int) *Service {
	if maxLimit > 0 {
		s.maxLimit = maxLimit
	}
	return s
}

// Request returns a clamped page request.
func (s *Service) Request(pageNum, limit int) page.Request {
	return page.NewRequest(pageNum, limit, s.maxLimit)
}

// Browse parses raw criteria, builds the query and fetches one page.
// Read failures come back as domain.ErrTransientFetch with no partial data.
func (s *Service) Browse(ctx context.Context, raw criteria.Raw, req page.Request) (page.Result[domprod.Product], error) {
	c := criteria.Parse(raw)
	q, err := s.builder.Build(c)
	if err != nil {
		return page.Result[domprod.Product]{}, domain.NewValidationError(domain.FieldError{
			Field:   "filters",
			Message: err.Error(),
		})
	}

	res, err := page.Fetch(ctx, req, s.fetcher(q))
	if errors.Is(err, domain.ErrTextSearchNotSupported) {
		s.logger.Warn("Full-text search unavailable, falling back to title match",
			zap.String("text", c.Text()),
		)
		q, err = s.fallback.Build(c)
		if err != nil {
			return page.Result[domprod.Product]{}, fmt.Errorf("build fallback query: %w", err)
		}
		res, err = page.Fetch(ctx, req, s.fetcher(q))
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return page.Result[domprod.Product]{}, fmt.Errorf("browse: %w", err)
		}
		s.logger.Error("Browse failed", zap.Stringer("query", q), zap.Error(err))
		return page.Result[domprod.Product]{}, fmt.Errorf("%w: %w", domain.ErrTransientFetch, err)
	}
	return res, nil
}

// Filters returns the static filter choices plus every facet value in the store.
func (s *Service) Filters(ctx context.Context) (Options, error) {
	facets, err := s.repo.Facets(ctx)
	if err != nil {
		return Options{}, fmt.Errorf("%w: %w", domain.ErrTransientFetch, err)
	}
	return Options{
		PriceRanges:  append([]string(nil), PriceBuckets...),
		Ratings:      append([]int(nil), Ratings...),
		Availability: domprod.Availabilities(),
		Facets:       facet.NewCatalog().Merge(facets),
	}, nil
}

func (s *Service) fetcher(q query.Query) page.FetchFunc[domprod.Product] {
	return func(ctx context.Context, offset, limit int) (page.Window[domprod.Product], error) {
		return s.repo.Search(ctx, q, offset, limit)
	}
}
