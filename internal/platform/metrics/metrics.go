package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for gateway requests.
const (
	OutcomeSuccess      = "success"
	OutcomeRejected     = "rejected"
	OutcomeUnauthorized = "unauthorized"
	OutcomeTransport    = "transport_error"
)

// Reasons a session was invalidated.
const (
	ReasonLogout       = "logout"
	ReasonUnauthorized = "unauthorized"
)

// Metrics holds the Prometheus collectors for the client.
type Metrics struct {
	GatewayRequests      *prometheus.CounterVec
	GatewayDuration      *prometheus.HistogramVec
	SessionInvalidations *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in binaries and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		GatewayRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "evera_gateway_requests_total",
			Help: "Outbound API requests by method and normalized outcome",
		}, []string{"method", "outcome"}),
		GatewayDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evera_gateway_request_duration_seconds",
			Help:    "Latency of outbound API requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		SessionInvalidations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "evera_session_invalidations_total",
			Help: "Session clears by reason",
		}, []string{"reason"}),
	}
}

// ObserveRequest records one completed gateway call.
func (m *Metrics) ObserveRequest(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(method, outcome).Inc()
	m.GatewayDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// IncrementSessionInvalidations counts one forced or voluntary session clear.
func (m *Metrics) IncrementSessionInvalidations(reason string) {
	if m == nil {
		return
	}
	m.SessionInvalidations.WithLabelValues(reason).Inc()
}
