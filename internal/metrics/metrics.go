// Package metrics records outbound Vault requests in Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusError labels requests that failed before a response arrived.
const StatusError = "error"

// RequestMetrics holds the request collectors on a private registry. A nil
// *RequestMetrics records nothing.
type RequestMetrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *RequestMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &RequestMetrics{
		registry: reg,
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultkeys_requests_total",
				Help: "Total number of requests sent to Vault",
			},
			[]string{"route", "method", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vaultkeys_request_duration_seconds",
				Help:    "Duration of requests sent to Vault in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"route", "method"},
		),
	}
}

// ObserveRequest records one request. A status of 0 means the request
// failed before Vault answered.
func (m *RequestMetrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := StatusError
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(route, method, label).Inc()
	m.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Registry returns the registry holding the collectors.
func (m *RequestMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *RequestMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Requests returns the request counter.
func (m *RequestMetrics) Requests() *prometheus.CounterVec {
	return m.requests
}
