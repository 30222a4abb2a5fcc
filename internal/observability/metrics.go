package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "karmafeed_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "karmafeed_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// LikeTransitions counts like/unlike calls by target kind, direction and whether state changed.
	LikeTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "karmafeed_like_transitions_total",
		Help: "Like and unlike operations by target kind, direction and outcome",
	}, []string{"target", "direction", "outcome"})

	// KarmaEventsAppended counts ledger entries by event type.
	KarmaEventsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "karmafeed_karma_events_appended_total",
		Help: "Karma ledger entries appended by event type",
	}, []string{"event_type"})

	// LeaderboardComputeLatency records how long a windowed top-k aggregation takes.
	LeaderboardComputeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "karmafeed_leaderboard_compute_seconds",
		Help:    "Leaderboard aggregation latency in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// CommentTreeSize records the number of comments materialized per tree build.
	CommentTreeSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "karmafeed_comment_tree_size",
		Help:    "Number of comments per materialized comment tree",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	// WebSocketConnections is the gauge of live event stream connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "karmafeed_websocket_connections",
		Help: "Number of active event stream WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped because a client's send buffer was full.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "karmafeed_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordLikeTransition counts one like/unlike call.
func RecordLikeTransition(target string, liked, changed bool) {
	direction := "unlike"
	if liked {
		direction = "like"
	}
	outcome := "noop"
	if changed {
		outcome = "changed"
	}
	LikeTransitions.WithLabelValues(target, direction, outcome).Inc()
}
