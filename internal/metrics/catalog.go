package metrics

import "github.com/prometheus/client_golang/prometheus"

// Catalog Prometheus metrics.
var (
	StoreQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalog",
			Name:      "store_queries_total",
			Help:      "Total number of store queries",
		},
		[]string{"op", "mode", "status"}, // mode: "filter" / "ranked"
	)

	StoreQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalog",
			Name:      "store_query_duration_seconds",
			Help:      "Store query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"op", "mode"},
	)

	BrowseMatches = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "catalog",
			Name:      "browse_matches",
			Help:      "Number of products matching a browse query",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
		},
	)

	FacetValues = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "catalog",
			Name:      "facet_values",
			Help:      "Distinct values known per facet",
		},
		[]string{"facet"}, // "categories" / "brands" / "tags"
	)

	ProductWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalog",
			Name:      "product_writes_total",
			Help:      "Total product writes",
		},
		[]string{"op", "status"},
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalog",
			Name:      "events_published_total",
			Help:      "Product change events handed to the broker",
		},
		[]string{"type", "status"},
	)
)

var catalogMetricsRegistered bool

// RegisterCatalogMetrics registers catalog metrics. Must be called once from main.
func RegisterCatalogMetrics() {
	if catalogMetricsRegistered {
		return
	}
	prometheus.MustRegister(StoreQueriesTotal)
	prometheus.MustRegister(StoreQueryDuration)
	prometheus.MustRegister(BrowseMatches)
	prometheus.MustRegister(FacetValues)
	prometheus.MustRegister(ProductWritesTotal)
	prometheus.MustRegister(EventsPublishedTotal)
	catalogMetricsRegistered = true
}
