// Package metrics holds the Prometheus instruments of the chat backend.
//
// Chat:
//   - chat_messages_total{sender}: messages persisted
//   - chat_notifications_total{result}: sent, failed, skipped, dropped
//   - stomp_sessions_active: open STOMP sessions
//   - stomp_frames_rejected_total{reason}
//
// HTTP:
//   - http_requests_total{method,route,status}
//   - http_request_duration_seconds{method,route}
//
// Mail:
//   - circuit_breaker_state{name}: 0 closed, 1 half-open, 2 open
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
	NotificationSkipped = "skipped"
	NotificationDropped = "dropped"
)

var (
	ChatMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Chat messages persisted, by sender label",
		},
		[]string{"sender"},
	)

	ChatNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_notifications_total",
			Help: "Offline notifications by outcome",
		},
		[]string{"result"},
	)

	StompSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stomp_sessions_active",
			Help: "Open STOMP sessions",
		},
	)

	StompFramesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stomp_frames_rejected_total",
			Help: "Inbound STOMP frames rejected, by reason",
		},
		[]string{"reason"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method", "route"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

// RecordMessage counts one persisted chat message.
func RecordMessage(sender string) {
	ChatMessages.WithLabelValues(senderLabel(sender)).Inc()
}

// senderLabel bounds label cardinality; the sender label is free-form.
func senderLabel(sender string) string {
	switch sender {
	case "USER", "ADMIN":
		return sender
	}
	return "other"
}

func RecordNotification(result string) {
	ChatNotifications.WithLabelValues(result).Inc()
}

func RecordFrameRejected(reason string) {
	StompFramesRejected.WithLabelValues(reason).Inc()
}

func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
