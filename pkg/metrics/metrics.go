// Package metrics provides Prometheus metrics for the storage core:
// record throughput per trunk, flush activity, and per-stage pipeline
// latency.
//
// # Basic Usage
//
//	metrics.RecordsStashed.WithLabelValues("memory").Inc()
//
//	timer := metrics.NewTimer()
//	flush(batch)
//	metrics.FlushDuration.WithLabelValues("sqlite").Observe(timer.Stop().Seconds())
//
// All collectors are registered through promauto at package init and are
// safe for concurrent use.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsStashed counts records accepted for write, by backend type.
	RecordsStashed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acorn_records_stashed_total",
			Help: "Total records accepted by Stash",
		},
		[]string{"backend"},
	)

	// RecordsCracked counts successful reads, by backend type.
	RecordsCracked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acorn_records_cracked_total",
			Help: "Total records returned by Crack",
		},
		[]string{"backend"},
	)

	// RecordsTossed counts deletions, by backend type.
	RecordsTossed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acorn_records_tossed_total",
			Help: "Total records deleted by Toss",
		},
		[]string{"backend"},
	)

	// Flushes counts flush executions by backend type and trigger
	// ("threshold", "timer", "manual", "disposal").
	Flushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acorn_flushes_total",
			Help: "Total flush executions",
		},
		[]string{"backend", "trigger"},
	)

	// FlushDuration observes wall time per flush, by backend type.
	FlushDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "acorn_flush_duration_seconds",
			Help:    "Flush execution time",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
		[]string{"backend"},
	)

	// FlushFailures counts per-record persistence failures during flush.
	FlushFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acorn_flush_failures_total",
			Help: "Per-record failures during batch persistence",
		},
		[]string{"backend"},
	)

	// BufferedWrites gauges the current depth of the write buffer.
	BufferedWrites = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "acorn_buffered_writes",
			Help: "Writes queued but not yet flushed",
		},
		[]string{"backend"},
	)

	// StageBytes counts bytes entering transformation stages, by stage
	// signature and direction ("write", "read").
	StageBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acorn_stage_bytes_total",
			Help: "Bytes processed by transformation stages",
		},
		[]string{"signature", "direction"},
	)

	// StageFailures counts integrity-critical stage failures.
	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "acorn_stage_failures_total",
			Help: "Transformation stage failures",
		},
		[]string{"signature", "direction"},
	)
)

// Timer measures elapsed time for an operation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
