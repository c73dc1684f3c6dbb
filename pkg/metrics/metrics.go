package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of statements slower than the configured threshold",
		},
		[]string{"command"},
	)

	SlowQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "db_slow_query_duration_seconds",
			Help:    "Duration of slow statements in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~12s
		},
	)

	TaskCompletionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_completion_count",
			Help: "Total number of complete requests by outcome",
		},
		[]string{"outcome"}, // completed, already_done
	)

	TaskExportCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "task_export_count",
			Help: "Total number of spreadsheet exports",
		},
	)

	TaskExportRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "task_export_rows",
			Help:    "Number of task rows per export",
			Buckets: prometheus.ExponentialBuckets(1, 4, 7), // 1 to 4096
		},
	)

	EventPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mq_publish_failure_count",
			Help: "Total number of events that could not be published",
		},
		[]string{"routing_key"},
	)

	// Audit consumer outcomes: recorded, duplicate, malformed, failed.
	AuditEventCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_event_count",
			Help: "Total number of audit events consumed",
		},
		[]string{"status"}, // stored, duplicate, failed
	)
)

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncrementSlowQuery(command string, duration time.Duration) {
	SlowQueryCount.WithLabelValues(command).Inc()
	SlowQueryDuration.Observe(duration.Seconds())
}

func IncrementTaskCompletion(outcome string) {
	TaskCompletionCount.WithLabelValues(outcome).Inc()
}

// RecordTaskExport counts one export and the number of rows it wrote.
func RecordTaskExport(rows int) {
	TaskExportCount.Inc()
	TaskExportRows.Observe(float64(rows))
}

func IncrementPublishFailure(routingKey string) {
	EventPublishFailures.WithLabelValues(routingKey).Inc()
}

func IncrementAuditEvent(status string) {
	AuditEventCount.WithLabelValues(status).Inc()
}
