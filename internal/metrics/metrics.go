package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boilagbe_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "boilagbe_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Chat metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boilagbe_messages_sent_total",
			Help: "Total chat messages persisted",
		},
		[]string{"via"}, // "rest" or "socket"
	)

	MessagesMarkedRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boilagbe_messages_marked_read_total",
			Help: "Total messages stamped with a last-read timestamp",
		},
	)

	// Relay metrics
	RelayConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "boilagbe_relay_connections",
			Help: "Currently open push channel connections",
		},
	)

	RelayPushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boilagbe_relay_pushes_total",
			Help: "Push events by outcome",
		},
		[]string{"result"}, // "delivered", "offline", "dropped"
	)

	// Infrastructure metrics
	RedisPublishLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "boilagbe_redis_publish_latency_seconds",
			Help:    "Redis publish latency for relay fan-out",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)
)
