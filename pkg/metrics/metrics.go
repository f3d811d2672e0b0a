package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ consume latency in milliseconds
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// Provider media download latency in milliseconds
	MediaFetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_fetch_latency_ms",
			Help:    "Provider media download latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(50, 2, 10), // 50ms to ~50s
		},
		[]string{"status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation"},
	)

	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Queries slower than the configured threshold",
		},
		[]string{"sql"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// Replies resolved to a question or story
	ReplyResolvedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reply_resolved_count",
			Help: "Total number of inbound replies resolved",
		},
		[]string{"channel", "matched_by"}, // matched_by: header, body, subject, sender, latest_unanswered
	)

	ReplyUnmatchedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reply_unmatched_count",
			Help: "Total number of inbound replies without a question",
		},
		[]string{"channel"},
	)

	// Email responses without a question older than the report window
	UnmatchedEmailBacklog = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "email_response_unmatched_backlog",
			Help: "Email responses without a question awaiting moderation",
		},
	)

	NotificationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reply_notification_count",
			Help: "Owner notifications written for received replies",
		},
		[]string{"status"}, // status: success, failed, skipped
	)
)

func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

func RecordMediaFetchLatency(status string, duration time.Duration) {
	MediaFetchLatency.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func RecordDBQueryDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementSlowQuery counts a slow query; sql should already be truncated
func IncrementSlowQuery(sql string, _ time.Duration) {
	SlowQueryCount.WithLabelValues(sql).Inc()
}

func IncrementReplyResolved(channel, matchedBy string) {
	ReplyResolvedCount.WithLabelValues(channel, matchedBy).Inc()
}

func IncrementReplyUnmatched(channel string) {
	ReplyUnmatchedCount.WithLabelValues(channel).Inc()
}

func IncrementNotification(status string) {
	NotificationCount.WithLabelValues(status).Inc()
}
