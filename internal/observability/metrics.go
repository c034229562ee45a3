package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Transitions          *prometheus.CounterVec
	SLAChanges           *prometheus.CounterVec
	OpenBySLA            *prometheus.GaugeVec
	SweepDuration        prometheus.Histogram
	HTTPRequests         *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec
	CollaboratorFailures *prometheus.CounterVec
}

// NewMetrics registers every collector with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "legal_request_transitions_total",
			Help: "Lifecycle operations by request family, operation and outcome",
		}, []string{"family", "operation", "outcome"}),
		SLAChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "legal_sla_status_changes_total",
			Help: "SLA standing changes persisted by sweeps",
		}, []string{"family", "status"}),
		OpenBySLA: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "legal_open_requests",
			Help: "Open requests by SLA standing as of the last sweep",
		}, []string{"family", "status"}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "legal_sla_sweep_duration_seconds",
			Help:    "Duration of SLA sweeps",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "legal_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "legal_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		CollaboratorFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "legal_collaborator_failures_total",
			Help: "Best-effort collaborator calls that failed after commit",
		}, []string{"collaborator"}),
	}
}

// RecordTransition counts one lifecycle operation.
func (m *Metrics) RecordTransition(family, operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Transitions.WithLabelValues(family, operation, outcome).Inc()
}

// RecordSLAChange counts a persisted standing change.
func (m *Metrics) RecordSLAChange(family, status string) {
	if m == nil {
		return
	}
	m.SLAChanges.WithLabelValues(family, status).Inc()
}

// SetOpenBySLA publishes the sweep's tally for one family.
func (m *Metrics) SetOpenBySLA(family string, counts map[string]int) {
	if m == nil {
		return
	}
	for status, n := range counts {
		m.OpenBySLA.WithLabelValues(family, status).Set(float64(n))
	}
}

// ObserveSweep records the duration of a sweep started at start.
func (m *Metrics) ObserveSweep(start time.Time) {
	if m == nil {
		return
	}
	m.SweepDuration.Observe(time.Since(start).Seconds())
}

// RecordRequest records one HTTP request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordCollaboratorFailure counts a swallowed collaborator error.
func (m *Metrics) RecordCollaboratorFailure(collaborator string) {
	if m == nil {
		return
	}
	m.CollaboratorFailures.WithLabelValues(collaborator).Inc()
}
