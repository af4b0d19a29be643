// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ledger metrics
	RPCCallLatency    *prometheus.HistogramVec
	RPCCallErrors     *prometheus.CounterVec
	LedgerQueryFailed *prometheus.CounterVec

	// Scoring metrics
	ScoreRequests *prometheus.CounterVec
	ScoreValues   prometheus.Histogram
	GradesIssued  *prometheus.CounterVec
	ScoreDuration prometheus.Histogram

	// Cache metrics
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheEntries   prometheus.Gauge
	CacheEvictions prometheus.Counter

	// Batch metrics
	BatchRequests *prometheus.CounterVec
	BatchSize     prometheus.Histogram

	// Watchlist metrics
	WatchlistSize      prometheus.Gauge
	Rescores           prometheus.Counter
	SignificantChanges *prometheus.CounterVec

	// Notification metrics
	AlertSubscribers prometheus.Gauge
	AlertsPublished  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "blockscore"
	}

	return &Metrics{
		// Ledger metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed Solana RPC calls by method",
		}, []string{"method"}),
		LedgerQueryFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "query_failures_total",
			Help:      "Total number of failed ledger sub-queries by query and kind",
		}, []string{"query", "kind"}),

		// Scoring metrics
		ScoreRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "requests_total",
			Help:      "Total number of score requests by outcome",
		}, []string{"outcome"}),
		ScoreValues: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "score_value",
			Help:      "Distribution of computed composite scores",
			Buckets:   []float64{10, 20, 35, 50, 65, 80, 90, 100},
		}),
		GradesIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "grades_total",
			Help:      "Total number of computed scores by grade",
		}, []string{"grade"}),
		ScoreDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "compute_duration_seconds",
			Help:      "Time to fetch a snapshot and compute a score",
			Buckets:   prometheus.DefBuckets,
		}),

		// Cache metrics
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of score cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of score cache misses",
		}),
		CacheEntries: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Current number of cached scores",
		}),
		CacheEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Total number of expired entries removed by the sweeper",
		}),

		// Batch metrics
		BatchRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "requests_total",
			Help:      "Total number of batch score requests by status",
		}, []string{"status"}),
		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "size",
			Help:      "Number of identifiers per accepted batch",
			Buckets:   []float64{1, 2, 5, 10},
		}),

		// Watchlist metrics
		WatchlistSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watchlist",
			Name:      "size",
			Help:      "Current number of watched accounts",
		}),
		Rescores: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watchlist",
			Name:      "rescores_total",
			Help:      "Total number of rescores of watched accounts",
		}),
		SignificantChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watchlist",
			Name:      "significant_changes_total",
			Help:      "Total number of significant score changes by direction",
		}, []string{"direction"}),

		// Notification metrics
		AlertSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "subscribers",
			Help:      "Current number of connected alert subscribers",
		}),
		AlertsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "messages_published_total",
			Help:      "Total number of messages broadcast to subscribers",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRPCCall records RPC call latency and failures.
func RecordRPCCall(method string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordLedgerFailure records a failed ledger sub-query.
func RecordLedgerFailure(query, kind string) {
	DefaultMetrics.LedgerQueryFailed.WithLabelValues(query, kind).Inc()
}

// RecordScoreComputed records a freshly computed score.
func RecordScoreComputed(score int, grade string, seconds float64) {
	DefaultMetrics.ScoreRequests.WithLabelValues("computed").Inc()
	DefaultMetrics.ScoreValues.Observe(float64(score))
	DefaultMetrics.GradesIssued.WithLabelValues(grade).Inc()
	DefaultMetrics.ScoreDuration.Observe(seconds)
}

// RecordScoreOutcome increments the score request counter for a non-computed outcome.
func RecordScoreOutcome(outcome string) {
	DefaultMetrics.ScoreRequests.WithLabelValues(outcome).Inc()
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		DefaultMetrics.CacheHits.Inc()
		return
	}
	DefaultMetrics.CacheMisses.Inc()
}

// UpdateCacheEntries sets the cached entries gauge.
func UpdateCacheEntries(n int) {
	DefaultMetrics.CacheEntries.Set(float64(n))
}

// RecordCacheEvictions adds n sweeper evictions.
func RecordCacheEvictions(n int) {
	DefaultMetrics.CacheEvictions.Add(float64(n))
}

// RecordBatch records a batch request.
func RecordBatch(status string, size int) {
	DefaultMetrics.BatchRequests.WithLabelValues(status).Inc()
	if status == "ok" {
		DefaultMetrics.BatchSize.Observe(float64(size))
	}
}

// UpdateWatchlistSize sets the watched accounts gauge.
func UpdateWatchlistSize(n int) {
	DefaultMetrics.WatchlistSize.Set(float64(n))
}

// RecordRescore records a rescore and, when significant, its direction.
func RecordRescore(significant bool, direction string) {
	DefaultMetrics.Rescores.Inc()
	if significant {
		DefaultMetrics.SignificantChanges.WithLabelValues(direction).Inc()
	}
}

// UpdateAlertSubscribers sets the connected subscribers gauge.
func UpdateAlertSubscribers(n int) {
	DefaultMetrics.AlertSubscribers.Set(float64(n))
}

// RecordAlertPublished increments the broadcast counter.
func RecordAlertPublished() {
	DefaultMetrics.AlertsPublished.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
