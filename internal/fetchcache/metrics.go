package fetchcache

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_fetch_cache_hits_total",
			Help: "Total number of fetch cache hits served without a network call",
		},
		[]string{"cache"},
	)

	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_fetch_cache_misses_total",
			Help: "Total number of fetch cache misses that issued a network call",
		},
		[]string{"cache"},
	)

	cacheDedupWaits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_fetch_cache_dedup_waits_total",
			Help: "Total number of callers that awaited an already in-flight request",
		},
		[]string{"cache"},
	)

	cacheRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_fetch_cache_retries_total",
			Help: "Total number of transient-failure retries issued by the fetch cache",
		},
		[]string{"cache"},
	)
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMisses, cacheDedupWaits, cacheRetries)
}
