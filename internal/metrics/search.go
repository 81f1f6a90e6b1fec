package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	InterpretationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "interpretations_total",
			Help:      "Query interpretations by producing stage",
		},
		[]string{"source"}, // fast_path / cache / llm / fallback
	)

	InterpretationCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "interpretation_cache_total",
			Help:      "Interpretation cache lookups",
		},
		[]string{"tier", "result"}, // exact|normalized|persistent, hit|miss|error
	)

	InterpretationCacheEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "interpretation_cache_entries",
			Help:      "In-process interpretation cache size",
		},
		[]string{"tier"},
	)

	CacheWritesDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_writes_dropped_total",
			Help:      "Persistent cache jobs dropped because the queue was full",
		},
	)

	CacheWriteErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_write_errors_total",
			Help:      "Persistent cache jobs that failed",
		},
		[]string{"op"},
	)

	FilterRemovedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "filter_removed_total",
			Help:      "Products removed by each filter rule",
		},
		[]string{"rule"},
	)

	InventoryGapsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "inventory_gaps_total",
			Help:      "Searches ending in an explicit inventory gap",
		},
		[]string{"rule"},
	)

	RetrievalFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retrieval_failures_total",
			Help:      "Candidate retrieval calls that failed",
		},
	)

	MerchantCapApplied = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "merchant_cap_applied",
			Help:      "Merchant cap used per search (0 = uncapped)",
			Buckets:   []float64{0, 2, 4, 6},
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers pipeline metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		InterpretationsTotal,
		InterpretationCacheTotal,
		InterpretationCacheEntries,
		CacheWritesDroppedTotal,
		CacheWriteErrorsTotal,
		FilterRemovedTotal,
		InventoryGapsTotal,
		RetrievalFailuresTotal,
		MerchantCapApplied,
	)
	searchMetricsRegistered = true
}
