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
	// Ingestion metrics
	TicksProcessed    *prometheus.CounterVec
	TicksRejected     *prometheus.CounterVec
	WorkerQueueDepth  *prometheus.GaugeVec
	TickProcessingLag prometheus.Histogram

	// Feature metrics
	RowsEmitted *prometheus.CounterVec
	RowsSkipped *prometheus.CounterVec

	// Writer metrics
	BatchesFlushed *prometheus.CounterVec
	RowsFlushed    *prometheus.CounterVec
	FlushRetries   *prometheus.CounterVec
	FlushFailures  *prometheus.CounterVec
	FlushLatency   *prometheus.HistogramVec

	// Health metrics
	LastSuccessfulFlush prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tick_feature_lab"
	}

	return &Metrics{
		// Ingestion metrics
		TicksProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "ticks_processed_total",
			Help:      "Total number of ticks processed by symbol",
		}, []string{"symbol"}),
		TicksRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "ticks_rejected_total",
			Help:      "Total number of ticks rejected by reason",
		}, []string{"symbol", "reason"}),
		WorkerQueueDepth: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "worker_queue_depth",
			Help:      "Current number of ticks queued per symbol worker",
		}, []string{"symbol"}),
		TickProcessingLag: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "tick_processing_seconds",
			Help:      "Per-tick processing latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),

		// Feature metrics
		RowsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "rows_emitted_total",
			Help:      "Total number of feature rows emitted by table",
		}, []string{"table"}),
		RowsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "rows_skipped_total",
			Help:      "Total number of ticks that produced no row for a table (window not warm)",
		}, []string{"table"}),

		// Writer metrics
		BatchesFlushed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "batches_flushed_total",
			Help:      "Total number of batches flushed by table and status",
		}, []string{"table", "status"}),
		RowsFlushed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "rows_flushed_total",
			Help:      "Total number of rows flushed to storage by table",
		}, []string{"table"}),
		FlushRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "flush_retries_total",
			Help:      "Total number of flush retries by table",
		}, []string{"table"}),
		FlushFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "flush_failures_total",
			Help:      "Total number of batches dropped after exhausting retries or on fatal errors",
		}, []string{"table"}),
		FlushLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "writer",
			Name:      "flush_duration_seconds",
			Help:      "Batch flush duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table"}),

		// Health metrics
		LastSuccessfulFlush: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_flush_timestamp",
			Help:      "Unix timestamp of the last successful batch flush",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordTickProcessed increments the processed-tick counter.
func RecordTickProcessed(symbol string) {
	DefaultMetrics.TicksProcessed.WithLabelValues(symbol).Inc()
}

// RecordTickRejected records a rejected tick by reason.
func RecordTickRejected(symbol, reason string) {
	DefaultMetrics.TicksRejected.WithLabelValues(symbol, reason).Inc()
}

// UpdateQueueDepth updates the per-symbol worker queue gauge.
func UpdateQueueDepth(symbol string, depth int) {
	DefaultMetrics.WorkerQueueDepth.WithLabelValues(symbol).Set(float64(depth))
}

// ObserveTickLatency records one tick's end-to-end processing duration.
func ObserveTickLatency(seconds float64) {
	DefaultMetrics.TickProcessingLag.Observe(seconds)
}

// RecordRowEmitted increments the emitted-row counter for a table.
func RecordRowEmitted(table string) {
	DefaultMetrics.RowsEmitted.WithLabelValues(table).Inc()
}

// RecordRowSkipped increments the skipped-row counter for a table.
func RecordRowSkipped(table string) {
	DefaultMetrics.RowsSkipped.WithLabelValues(table).Inc()
}

// RecordFlush records a completed flush attempt.
func RecordFlush(table string, rows int, seconds float64, err error) {
	DefaultMetrics.FlushLatency.WithLabelValues(table).Observe(seconds)
	if err != nil {
		DefaultMetrics.BatchesFlushed.WithLabelValues(table, "error").Inc()
		return
	}
	DefaultMetrics.BatchesFlushed.WithLabelValues(table, "ok").Inc()
	DefaultMetrics.RowsFlushed.WithLabelValues(table).Add(float64(rows))
}

// RecordFlushRetry increments the retry counter for a table.
func RecordFlushRetry(table string) {
	DefaultMetrics.FlushRetries.WithLabelValues(table).Inc()
}

// RecordFlushFailure increments the dropped-batch counter for a table.
func RecordFlushFailure(table string) {
	DefaultMetrics.FlushFailures.WithLabelValues(table).Inc()
}
