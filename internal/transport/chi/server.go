package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalog/internal/domain"
	domprod "github.com/kailas-cloud/catalog/internal/domain/product"
	"github.com/kailas-cloud/catalog/internal/domain/search/page"
	logpkg "github.com/kailas-cloud/catalog/internal/logger"
	cataloguc "github.com/kailas-cloud/catalog/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/catalog/internal/usecase/health"
	productuc "github.com/kailas-cloud/catalog/internal/usecase/product"
)

const maxBodyBytes = 1 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the catalog HTTP API.
type Server struct {
	catalog       *cataloguc.Service
	products      *productuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	defaultLimit  int
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	catalog *cataloguc.Service,
	products *productuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		catalog:      catalog,
		products:     products,
		health:       health,
		logger:       logger,
		defaultLimit: page.DefaultLimit,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrMalformedID, http.StatusBadRequest, ErrorCodeInvalidID),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrTransientFetch, http.StatusInternalServerError, ErrorCodeFetchFailed),
	}
	return s
}

// WithDefaultLimit sets the page size used when a request carries none.
func (s *Server) WithDefaultLimit(limit int) *Server {
	if limit > 0 {
		s.defaultLimit = limit
	}
	return s
}

// Routes registers the API on r, including the legacy route aliases.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/products", func(r chi.Router) {
		r.Get("/", s.ListProducts)
		r.Post("/", s.CreateProduct)
		r.Get("/getProducts", s.ListProducts)
		r.Post("/addProduct", s.CreateProduct)
		r.Get("/filters", s.GetFilters)
		r.Patch("/editProduct/{id}", s.UpdateProduct)
		r.Get("/{id}", s.GetProduct)
		r.Patch("/{id}", s.UpdateProduct)
	})
	r.Get("/filters", s.GetFilters)
}

// ListProducts handles GET /products.
func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	params, err := decodeBrowseParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid query parameters")
		return
	}

	pageNum, limit := params.pageAndLimit(s.defaultLimit)
	res, err := s.catalog.Browse(r.Context(), params.raw(), s.catalog.Request(pageNum, limit))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, browseToResponse(res))
}

// GetFilters handles GET /filters.
func (s *Server) GetFilters(w http.ResponseWriter, r *http.Request) {
	opts, err := s.catalog.Filters(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, filtersToResponse(opts))
}

// GetProduct handles GET /products/{id}.
func (s *Server) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeInvalidID, domain.ErrMalformedID.Error())
		return
	}

	p, err := s.products.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateProduct handles POST /products.
func (s *Server) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domprod.Product
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	p, err := s.products.Create(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/products/"+p.ID)
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProduct handles PATCH /products/{id}.
func (s *Server) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeInvalidID, domain.ErrMalformedID.Error())
		return
	}

	var req domprod.Patch
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	p, err := s.products.Update(r.Context(), id, req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v) //nolint:wrapcheck // reported to the client as-is
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrMalformedID,
		domain.ErrNotFound,
		domain.ErrTransientFetch,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler reports every rejected field of a ValidationError.
func validationHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrValidation) {
		return false
	}
	resp := ValidationResponse{Code: ErrorCodeValidationFailed, Message: msg, Errors: []domain.FieldError{}}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Errors = verr.Fields
	}
	writeJSON(w, http.StatusBadRequest, resp)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContext(r.Context(), s.logger)
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
