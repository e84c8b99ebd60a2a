package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	requestTime   *prometheus.HistogramVec
	errors        *prometheus.CounterVec
	slaEvents     *prometheus.CounterVec
	sweepDuration *prometheus.HistogramVec
	notifications *prometheus.CounterVec
	transitions   *prometheus.CounterVec
}

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "helpdesk",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "http_errors_total",
			Help:      "Errors returned to clients by domain error code.",
		}, []string{"path", "method", "code"}),
		slaEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "sla_events_total",
			Help:      "SLA warnings and breaches recorded by sweeps.",
		}, []string{"severity", "dry_run"}),
		sweepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "helpdesk",
			Name:      "sla_sweep_duration_seconds",
			Help:      "Duration of SLA sweeps.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"outcome"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "notifications_total",
			Help:      "Notification dispatch attempts.",
		}, []string{"result"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "ticket_transitions_total",
			Help:      "Committed ticket status transitions.",
		}, []string{"from", "to"}),
	}
}

// RecordRequest observes one HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestTime.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordSLA adds n events of severity.
func (m *Metrics) RecordSLA(severity string, n int, dryRun bool) {
	if m == nil || n == 0 {
		return
	}
	m.slaEvents.WithLabelValues(severity, strconv.FormatBool(dryRun)).Add(float64(n))
}

// ObserveSweep records how long a sweep took.
func (m *Metrics) ObserveSweep(duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.sweepDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordNotification counts a dispatch attempt.
func (m *Metrics) RecordNotification(err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.notifications.WithLabelValues(result).Inc()
}

// RecordTransition counts a committed status change.
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
