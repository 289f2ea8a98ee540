package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Filtering and listing Prometheus metrics.
var (
	CompileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "postfilter",
			Name:      "compile_total",
			Help:      "Filter submissions by outcome",
		},
		[]string{"outcome"}, // "applied" / "empty" / "denied" / "invalid" / "error"
	)

	QueryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "postfilter",
			Name:      "query_cache_total",
			Help:      "Compiled query cache operations",
		},
		[]string{"op", "result"}, // op: put/get/clear; result: ok/hit/miss/error
	)

	FacetCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "postfilter",
			Name:      "facet_cache_total",
			Help:      "Facet cache hits, misses and editor bypasses",
		},
		[]string{"result"},
	)

	ListingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "postfilter",
			Name:      "listing_duration_seconds",
			Help:      "Listing render duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"source"}, // where the overlay query came from
	)

	RateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "postfilter",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		},
		[]string{"driver"},
	)
)

var registerOnce sync.Once

// Register registers the filtering metrics with the default registry. Call once from main.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			CompileTotal,
			QueryCacheTotal,
			FacetCacheTotal,
			ListingDuration,
			RateLimitedTotal,
		)
	})
}
