package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Operation labels. Legacy aliases such as /products/getProducts report under
// the same operation as their canonical route.
const (
	OpBrowse  = "browse"
	OpGet     = "get"
	OpCreate  = "create"
	OpUpdate  = "update"
	OpFilters = "filters"
	OpOther   = "other"
)

// routeOps maps "METHOD pattern" to a catalog operation.
var routeOps = map[string]string{
	"GET /products/":                   OpBrowse,
	"GET /products/getProducts":        OpBrowse,
	"GET /products/{id}":               OpGet,
	"POST /products/":                  OpCreate,
	"POST /products/addProduct":        OpCreate,
	"PATCH /products/{id}":             OpUpdate,
	"PATCH /products/editProduct/{id}": OpUpdate,
	"GET /products/filters":            OpFilters,
	"GET /filters":                     OpFilters,
}

// unlabeled routes are scraped or polled, not used by shoppers.
var unlabeled = map[string]bool{
	"/metrics": true,
	"/health":  true,
}

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalog",
			Name:      "http_request_duration_seconds",
			Help:      "Catalog API request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation", "route", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalog",
			Name:      "http_requests_total",
			Help:      "Catalog API requests by operation, route and status",
		},
		[]string{"operation", "route", "status"},
	)

	httpResponseBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalog",
			Name:      "http_response_bytes",
			Help:      "Catalog API response body size",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 7), // 256B .. 1MiB
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestDuration, httpRequestsTotal, httpResponseBytes)
}

// Middleware records duration, count and response size per catalog operation.
// Health checks and metric scrapes are not recorded.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := routeLabel(r)
			if unlabeled[route] {
				return
			}
			op := operation(r.Method, route)
			status := strconv.Itoa(statusOf(ww))

			httpRequestDuration.WithLabelValues(op, route, status).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(op, route, status).Inc()
			httpResponseBytes.WithLabelValues(op).Observe(float64(ww.BytesWritten()))
		})
	}
}

// routeLabel returns the matched chi pattern, so product ids never become
// label values. Unmatched requests share one label.
func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unmatched"
	}
	return normalizePath(rctx.RoutePattern())
}

func normalizePath(pattern string) string {
	if pattern == "" {
		return "unmatched"
	}
	return pattern
}

func operation(method, route string) string {
	if op, ok := routeOps[method+" "+route]; ok {
		return op
	}
	return OpOther
}

// statusOf treats a handler that never wrote a header as 200.
func statusOf(ww chiMiddleware.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}
