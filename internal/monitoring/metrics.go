// Package monitoring - metrics.go provides Prometheus collectors.
//
// DESIGN: Collectors are registered on an injected registry so tests and
// multiple gateways in one process never collide on the default registry:
//   - requests:         Inbound requests by HTTP status
//   - backend calls:    Backend outcomes by provider and result
//   - backend latency:  Backend call duration by provider
package monitoring

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LLMBuckets are histogram buckets suited to model inference latency (100ms to 120s).
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Metrics collects operational metrics.
type Metrics struct {
	registry       *prometheus.Registry
	requests       *prometheus.CounterVec
	backendCalls   *prometheus.CounterVec
	backendLatency *prometheus.HistogramVec
}

// NewMetrics creates collectors and registers them on registry.
// A nil registry gets a fresh one.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_gateway_requests_total",
			Help: "Total chat requests by HTTP status",
		}, []string{"status"}),
		backendCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_gateway_backend_calls_total",
			Help: "Backend invocations by provider and outcome",
		}, []string{"provider", "outcome"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chat_gateway_backend_latency_seconds",
			Help:    "Backend invocation latency",
			Buckets: LLMBuckets,
		}, []string{"provider"}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.backendCalls, m.backendLatency} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

// RecordRequest records a finished inbound request.
func (m *Metrics) RecordRequest(status int) {
	m.requests.WithLabelValues(strconv.Itoa(status)).Inc()
}

// RecordBackendCall records a backend call outcome ("success", "backend_error",
// "malformed", "unsupported_content", "timeout").
func (m *Metrics) RecordBackendCall(provider, outcome string, latency time.Duration) {
	m.backendCalls.WithLabelValues(provider, outcome).Inc()
	m.backendLatency.WithLabelValues(provider).Observe(latency.Seconds())
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
