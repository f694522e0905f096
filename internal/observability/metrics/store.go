// Package metrics provides Prometheus metrics for the catalog backend.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values
const (
	ResultSuccess     = "success"
	ResultError       = "error"
	ResultConflict    = "conflict"
	ResultUnavailable = "unavailable"
)

// StoreMetrics contains the metrics for document store operations and the
// read cache in front of them.
type StoreMetrics struct {
	Operations     *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	StaleFallbacks prometheus.Counter
	Invalidations  prometheus.Counter
}

// NewStoreMetrics creates the metrics and registers them on registry.
func NewStoreMetrics(registry prometheus.Registerer) (*StoreMetrics, error) {
	m := &StoreMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register store metrics: %w", err)
	}
	return m, nil
}

func (m *StoreMetrics) initMetrics() {
	m.Operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_store_operations_total",
		Help: "Total number of document store operations by backend, operation and result.",
	}, []string{"backend", "operation", "result"})

	m.Duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_store_operation_duration_seconds",
		Help:    "Duration of document store operations in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{"backend", "operation"})

	m.CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_hits_total",
		Help: "Total number of document reads served from the cache.",
	})

	m.CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_misses_total",
		Help: "Total number of document reads that went to the store.",
	})

	m.StaleFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_stale_fallbacks_total",
		Help: "Total number of reads answered with a stale snapshot because the store was unavailable.",
	})

	m.Invalidations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_invalidations_total",
		Help: "Total number of cache invalidations after writes.",
	})
}

// ObserveOperation records one store operation
func (m *StoreMetrics) ObserveOperation(backend, operation, result string, seconds float64) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(backend, operation, result).Inc()
	m.Duration.WithLabelValues(backend, operation).Observe(seconds)
}

// IncrementCacheHits increases the cache hit counter by one
func (m *StoreMetrics) IncrementCacheHits() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

// IncrementCacheMisses increases the cache miss counter by one
func (m *StoreMetrics) IncrementCacheMisses() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

// IncrementStaleFallbacks increases the stale fallback counter by one
func (m *StoreMetrics) IncrementStaleFallbacks() {
	if m != nil {
		m.StaleFallbacks.Inc()
	}
}

// IncrementInvalidations increases the invalidation counter by one
func (m *StoreMetrics) IncrementInvalidations() {
	if m != nil {
		m.Invalidations.Inc()
	}
}

// Describe implements the prometheus.Collector interface
func (m *StoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Operations.Describe(ch)
	m.Duration.Describe(ch)
	ch <- m.CacheHits.Desc()
	ch <- m.CacheMisses.Desc()
	ch <- m.StaleFallbacks.Desc()
	ch <- m.Invalidations.Desc()
}

// Collect implements the prometheus.Collector interface
func (m *StoreMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Operations.Collect(ch)
	m.Duration.Collect(ch)
	ch <- m.CacheHits
	ch <- m.CacheMisses
	ch <- m.StaleFallbacks
	ch <- m.Invalidations
}
