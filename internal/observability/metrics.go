package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records repository query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skillswap_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// SwapTransitions counts swap request lifecycle transitions.
	SwapTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_swap_transitions_total",
		Help: "Swap request status transitions by source and target status",
	}, []string{"from", "to"})

	// NotificationsDispatched counts notification deliveries per sink and outcome.
	NotificationsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_notifications_dispatched_total",
		Help: "Notification deliveries by sink and result",
	}, []string{"sink", "result"})

	// NotificationsDropped counts notifications discarded before delivery.
	NotificationsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_notifications_dropped_total",
		Help: "Notifications dropped before delivery",
	}, []string{"reason"})

	// NotificationQueueDepth is the number of events waiting in the dispatcher.
	NotificationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skillswap_notification_queue_depth",
		Help: "Events buffered in the notification dispatcher",
	})

	// WebSocketConnectionsTotal is the gauge of active notification sockets.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skillswap_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to slow clients.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// PhotoUploads counts processed profile photo uploads by store and result.
	PhotoUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skillswap_photo_uploads_total",
		Help: "Profile photo uploads by store and result",
	}, []string{"store", "result"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
