package product

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalog/internal/domain"
	domprod "github.com/kailas-cloud/catalog/internal/domain/product"
	"github.com/kailas-cloud/catalog/internal/metrics"
)

// Service handles product creation, lookup and partial updates.
type Service struct {
	repo      Repository
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// New creates a product service. publisher can be nil.
func New(repo Repository, publisher Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// Create validates a new product, assigns its identifier and stores it.
// Any client-supplied identifier is ignored.
func (s *Service) Create(ctx context.Context, p domprod.Product) (domprod.Product, error) {
	p.ID = s.newID()
	if err := p.Validate(); err != nil {
		metrics.ProductWritesTotal.WithLabelValues("create", "invalid").Inc()
		return domprod.Product{}, err
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		metrics.ProductWritesTotal.WithLabelValues("create", "error").Inc()
		return domprod.Product{}, fmt.Errorf("insert product: %w", err)
	}
	metrics.ProductWritesTotal.WithLabelValues("create", "ok").Inc()
	s.publish(ctx, domprod.EventCreated, p)
	return p, nil
}

// Get returns a product by ID.
func (s *Service) Get(ctx context.Context, id string) (domprod.Product, error) {
	if err := checkID(id); err != nil {
		return domprod.Product{}, err
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return domprod.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// Update merges a partial update into the stored product. The merged record
// must pass the same validation as a new product.
func (s *Service) Update(ctx context.Context, id string, patch domprod.Patch) (domprod.Product, error) {
	if err := checkID(id); err != nil {
		return domprod.Product{}, err
	}
	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return domprod.Product{}, fmt.Errorf("get product: %w", err)
	}
	if patch.IsEmpty() {
		return cur, nil
	}

	next := patch.Apply(cur)
	if err := next.Validate(); err != nil {
		metrics.ProductWritesTotal.WithLabelValues("update", "invalid").Inc()
		return domprod.Product{}, err
	}
	if err := s.repo.Replace(ctx, next); err != nil {
		metrics.ProductWritesTotal.WithLabelValues("update", "error").Inc()
		return domprod.Product{}, fmt.Errorf("replace product: %w", err)
	}
	metrics.ProductWritesTotal.WithLabelValues("update", "ok").Inc()
	s.publish(ctx, domprod.EventUpdated, next)
	return next, nil
}

func (s *Service) publish(ctx context.Context, t domprod.EventType, p domprod.Product) {
	if s.publisher == nil {
		return
	}
	e := domprod.Event{Type: t, Product: p, OccurredAt: s.now().UTC()}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("Failed to publish product event",
			zap.String("type", string(t)),
			zap.String("id", p.ID),
			zap.Error(err),
		)
	}
}

// checkID rejects identifiers that cannot address any product.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", domain.ErrMalformedID, id)
	}
	return nil
}
