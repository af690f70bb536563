package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for HTTP traffic and the cancellation funnel.
type Metrics struct {
	registry        *prometheus.Registry
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorCount      *prometheus.CounterVec
	funnel          *prometheus.CounterVec
}

// Funnel stages recorded by the services.
const (
	StageCancellationStarted = "cancellation_started"
	StageDownsellAccepted    = "downsell_accepted"
	StageDownsellDeclined    = "downsell_declined"
	StagePendingCancellation = "pending_cancellation"
	StageReactivated         = "reactivated"
)

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cancellation_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cancellation_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cancellation_http_errors_total",
			Help: "HTTP errors by route, method and error code.",
		}, []string{"path", "method", "code"}),
		funnel: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cancellation_funnel_total",
			Help: "Cancellation flow milestones by stage and downsell variant.",
		}, []string{"stage", "variant"}),
	}
	m.registry.MustRegister(m.requestCount, m.requestDuration, m.errorCount, m.funnel)
	return m
}

// Registry returns the registry backing /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}

// RecordFunnel counts a cancellation milestone. variant may be empty.
func (m *Metrics) RecordFunnel(stage, variant string) {
	if m == nil {
		return
	}
	m.funnel.WithLabelValues(stage, variant).Inc()
}
