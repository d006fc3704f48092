package search

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the search engine.
type Metrics struct {
	Registry       *prometheus.Registry
	SearchesTotal  *prometheus.CounterVec
	SearchDuration prometheus.Histogram
	SourcesTotal   *prometheus.CounterVec
	ListingsTotal  prometheus.Counter
	CacheHitsTotal prometheus.Counter
	StoreErrors    prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	searches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookfinder_searches_total",
			Help: "Total searches executed, by mode.",
		},
		[]string{"mode"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookfinder_search_duration_seconds",
			Help:    "End-to-end search latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	sources := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookfinder_source_outcomes_total",
			Help: "Per-source adapter outcomes by state.",
		},
		[]string{"source", "state"},
	)
	listings := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookfinder_listings_total",
			Help: "Total listings returned to callers.",
		},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookfinder_cache_hits_total",
			Help: "Result cache hits.",
		},
	)
	storeErrors := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookfinder_store_errors_total",
			Help: "Price history writes that failed.",
		},
	)

	registry.MustRegister(searches, duration, sources, listings, cacheHits, storeErrors)

	return &Metrics{
		Registry:       registry,
		SearchesTotal:  searches,
		SearchDuration: duration,
		SourcesTotal:   sources,
		ListingsTotal:  listings,
		CacheHitsTotal: cacheHits,
		StoreErrors:    storeErrors,
	}
}

// ObserveSearch records one completed search.
func (m *Metrics) ObserveSearch(mode string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(mode).Inc()
	m.SearchDuration.Observe(elapsed.Seconds())
}

// IncSource increments the per-source outcome counter.
func (m *Metrics) IncSource(source, state string) {
	if m == nil {
		return
	}
	m.SourcesTotal.WithLabelValues(source, state).Inc()
}

// AddListings counts listings handed back to a caller.
func (m *Metrics) AddListings(n int) {
	if m == nil {
		return
	}
	m.ListingsTotal.Add(float64(n))
}

// IncCacheHit counts a result cache hit.
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// IncStoreError counts a failed price history write.
func (m *Metrics) IncStoreError() {
	if m == nil {
		return
	}
	m.StoreErrors.Inc()
}
