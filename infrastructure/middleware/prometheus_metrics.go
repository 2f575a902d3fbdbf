// Package middleware provides cross-cutting concerns for the consensus
// engine: Prometheus metrics and OpenTelemetry run tracing.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-quorum/internal/ports"
)

// Compile-time verification that PrometheusMetrics implements
// MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It tracks run outcomes, per-analyst latency and failure
// reasons, dispatch timeouts, and the shape of consolidated decisions.
//
// Every instance owns its registry, so constructing a second collector
// never collides with the first. Callers that serve /metrics mount
// Registry() behind promhttp themselves; the engine owns no HTTP.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	runsTotal          *prometheus.CounterVec
	runDuration        *prometheus.HistogramVec
	analystDuration    *prometheus.HistogramVec
	analystFailures    *prometheus.CounterVec
	dispatchTimeouts   prometheus.Counter
	contributors       prometheus.Histogram
	weightedConfidence prometheus.Histogram
	activeRuns         prometheus.Gauge

	// Fallbacks for metrics the engine does not emit today, so a new
	// call site never silently drops data.
	eventCounters     *prometheus.CounterVec
	stateGauges       *prometheus.GaugeVec
	operationDuration *prometheus.HistogramVec
	observations      *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance with all
// metrics registered in a fresh registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		registry: registry,

		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quorum_runs_total",
				Help: "Total number of engine runs by terminal status.",
			},
			[]string{"status"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quorum_run_duration_seconds",
				Help:    "End-to-end engine run duration.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		analystDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quorum_analyst_duration_seconds",
				Help:    "Per-analyst Analyze call duration.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"analyst"},
		),
		analystFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quorum_analyst_failures_total",
				Help: "Analyst contributions lost to errors, panics, invalid results, cancellation or late completion.",
			},
			[]string{"analyst", "reason"},
		),
		dispatchTimeouts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "quorum_dispatch_timeouts_total",
				Help: "Dispatch batches that hit the global deadline before every analyst finished.",
			},
		),
		contributors: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quorum_contributors",
				Help:    "Number of analysts whose results made it into each consolidated decision.",
				Buckets: prometheus.LinearBuckets(0, 1, 11),
			},
		),
		weightedConfidence: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quorum_weighted_confidence",
				Help:    "Weighted mean confidence of consolidated decisions.",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		activeRuns: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "quorum_active_runs",
				Help: "Runs currently in flight.",
			},
		),

		eventCounters: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quorum_events_total",
				Help: "Counter events without a dedicated metric.",
			},
			[]string{"event"},
		),
		stateGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quorum_state",
				Help: "Gauge readings without a dedicated metric.",
			},
			[]string{"metric"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quorum_operation_duration_seconds",
				Help:    "Latency of operations without a dedicated histogram.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		observations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quorum_observations",
				Help:    "Histogram observations without a dedicated metric.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"metric"},
		),
	}
}

// Registry returns the underlying registry for callers that expose the
// metrics over HTTP or gather them in tests.
func (pm *PrometheusMetrics) Registry() *prometheus.Registry { return pm.registry }

// RecordLatency implements the MetricsCollector interface by recording
// operation durations in the matching histogram.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	switch operation {
	case "engine_run":
		pm.runDuration.WithLabelValues(labelOr(labels, "status")).Observe(duration.Seconds())
	case "analyst_analyze":
		pm.analystDuration.WithLabelValues(labelOr(labels, "analyst")).Observe(duration.Seconds())
	default:
		pm.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// RecordCounter implements the MetricsCollector interface by
// incrementing the matching Prometheus counter.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "quorum_runs_total":
		pm.runsTotal.WithLabelValues(labelOr(labels, "status")).Add(value)
	case "quorum_analyst_failures_total":
		pm.analystFailures.WithLabelValues(
			labelOr(labels, "analyst"),
			labelOr(labels, "reason"),
		).Add(value)
	case "quorum_dispatch_timeouts_total":
		pm.dispatchTimeouts.Add(value)
	default:
		pm.eventCounters.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting the
// matching Prometheus gauge.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	switch metric {
	case "quorum_active_runs":
		pm.activeRuns.Set(value)
	default:
		pm.stateGauges.WithLabelValues(metric).Set(value)
	}
}

// RecordHistogram implements the MetricsCollector interface by observing
// the value in the matching Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case "quorum_contributors":
		pm.contributors.Observe(value)
	case "quorum_weighted_confidence":
		pm.weightedConfidence.Observe(value)
	default:
		pm.observations.WithLabelValues(metric).Observe(value)
	}
}

// labelOr returns the label value for key, or "unknown" when the label
// is absent or empty.
func labelOr(labels map[string]string, key string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return "unknown"
}
