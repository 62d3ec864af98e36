package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gateway's Prometheus metrics. Instance-scoped rather
// than global so tests can register against their own registry.
type Metrics struct {
	authRequestsTotal *prometheus.CounterVec
	backendDownTotal  *prometheus.CounterVec

	// logoutBackendFailuresTotal counts backend logout calls that failed
	// while the browser was still told logout succeeded. Logout is
	// client-authoritative at the edge, so the failure is masked from the
	// response; this counter is where it stays visible.
	logoutBackendFailuresTotal prometheus.Counter
}

// NewMetrics registers the gateway metrics on the given registerer.
// A nil registerer uses the default one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		authRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pixelvault",
			Subsystem: "gateway",
			Name:      "auth_requests_total",
			Help:      "Auth gateway requests by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),

		backendDownTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pixelvault",
			Subsystem: "gateway",
			Name:      "backend_unreachable_total",
			Help:      "Transport-level failures contacting the backend API",
		}, []string{"endpoint"}),

		logoutBackendFailuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "pixelvault",
			Subsystem: "gateway",
			Name:      "logout_backend_failures_total",
			Help:      "Backend logout failures masked from the browser response",
		}),
	}
}

// RecordAuthRequest records one auth endpoint call and its outcome.
func (m *Metrics) RecordAuthRequest(endpoint, outcome string) {
	if m == nil {
		return
	}
	m.authRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
}

// RecordBackendUnreachable records a transport failure for an endpoint.
func (m *Metrics) RecordBackendUnreachable(endpoint string) {
	if m == nil {
		return
	}
	m.backendDownTotal.WithLabelValues(endpoint).Inc()
}

// RecordLogoutBackendFailure records a masked backend logout failure.
func (m *Metrics) RecordLogoutBackendFailure() {
	if m == nil {
		return
	}
	m.logoutBackendFailuresTotal.Inc()
}
