// Package metrics exposes Prometheus collectors for ingestion and inference.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels.
const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultSkipped   = "skipped"
	ResultDuplicate = "duplicate"
	ResultFallback  = "fallback"
)

var (
	// MessagesProcessed counts per-message stage outcomes.
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guestmail_messages_processed_total",
			Help: "Messages processed by pipeline stage and result",
		},
		[]string{"stage", "result"},
	)

	// InferenceDuration observes inference call latency.
	InferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guestmail_inference_duration_seconds",
			Help:    "Inference call latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
		},
		[]string{"operation", "status"},
	)

	// InferenceFallbacks counts calls answered by deterministic fallbacks.
	InferenceFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guestmail_inference_fallbacks_total",
			Help: "Inference operations that degraded to a fallback",
		},
		[]string{"operation"},
	)

	// SyncRuns counts finished runs by status.
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guestmail_sync_runs_total",
			Help: "Sync runs by terminal status",
		},
		[]string{"status"},
	)

	// SyncDuration observes whole-run latency.
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "guestmail_sync_duration_seconds",
			Help:    "Sync run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
		},
	)

	// BookingsExtracted counts persisted extractions by strategy.
	BookingsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guestmail_bookings_extracted_total",
			Help: "Extractions persisted by strategy",
		},
		[]string{"strategy"},
	)
)

// RecordStage counts one stage outcome for a message.
func RecordStage(stage, result string) {
	MessagesProcessed.WithLabelValues(stage, result).Inc()
}

// RecordInference observes an inference call.
func RecordInference(operation string, err error, duration time.Duration) {
	status := ResultOK
	if err != nil {
		status = ResultError
	}
	InferenceDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// RecordFallback counts a degraded inference operation.
func RecordFallback(operation string) {
	InferenceFallbacks.WithLabelValues(operation).Inc()
}

// RecordRun counts a finished run and observes its duration.
func RecordRun(status string, duration time.Duration) {
	SyncRuns.WithLabelValues(status).Inc()
	SyncDuration.Observe(duration.Seconds())
}

// RecordExtraction counts a persisted extraction.
func RecordExtraction(strategy string) {
	BookingsExtracted.WithLabelValues(strategy).Inc()
}
