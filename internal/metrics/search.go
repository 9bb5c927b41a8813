package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chunkdex",
			Name:      "search_requests_total",
			Help:      "Total number of search invocations",
		},
		[]string{"variant", "status"}, // variant: request, vector, text
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chunkdex",
			Name:      "search_duration_seconds",
			Help:      "Search duration in seconds, from resolution to grouping",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"variant"},
	)

	SearchHits = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "chunkdex",
			Name:      "search_hits",
			Help:      "Number of chunks returned per search after post-filtering",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 11),
		},
	)

	SearchWarningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chunkdex",
			Name:      "search_warnings_total",
			Help:      "Recoverable search warnings by code",
		},
		[]string{"code"},
	)

	DepthCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chunkdex",
			Name:      "depth_cache_total",
			Help:      "Hierarchy depth cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchHits)
	prometheus.MustRegister(SearchWarningsTotal)
	prometheus.MustRegister(DepthCacheTotal)
	searchMetricsRegistered = true
}
