package ports

import (
	"time"
)

// MetricsCollector defines the interface for collecting operational
// metrics. Implementations should integrate with observability platforms
// like Prometheus, OpenTelemetry, or custom monitoring solutions.
// All methods must be safe for concurrent use; a nil labels map is
// equivalent to an empty one.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like runs, worker failures, and
	// discarded late results.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like active runs and registered
	// analysts.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like contributor counts
	// and consolidated confidence.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
