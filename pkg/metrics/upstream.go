package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics records request outcomes against the backend API.
type UpstreamMetrics struct {
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
	polls    *prometheus.CounterVec
}

// NewUpstreamMetrics registers the gateway metrics on the provided registerer.
func NewUpstreamMetrics(reg prometheus.Registerer) *UpstreamMetrics {
	if reg == nil {
		return &UpstreamMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_request_duration_seconds",
		Help:    "Duration of requests to the backend API in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_requests_total",
		Help: "Requests to the backend API by operation and outcome.",
	}, []string{"operation", "outcome"})
	polls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_watcher_polls_total",
		Help: "Order watcher poll cycles by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(duration, requests, polls)
	return &UpstreamMetrics{
		duration: duration,
		requests: requests,
		polls:    polls,
	}
}

// ObserveRequest records one upstream request.
func (m *UpstreamMetrics) ObserveRequest(operation, outcome string, elapsed time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	op := normalizeLabel(operation)
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
	m.requests.WithLabelValues(op, normalizeLabel(outcome)).Inc()
}

// IncPoll counts one watcher poll cycle.
func (m *UpstreamMetrics) IncPoll(outcome string) {
	if m == nil || m.polls == nil {
		return
	}
	m.polls.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	cleaned := strings.TrimSpace(strings.ToLower(value))
	if cleaned == "" {
		return "unknown"
	}
	return strings.ReplaceAll(cleaned, " ", "_")
}
