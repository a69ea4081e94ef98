package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for command metrics.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeBusy     = "busy"
	OutcomeRejected = "rejected"
	OutcomeStale    = "stale"
)

// Metrics holds Prometheus collectors for the session controller.
type Metrics struct {
	CommandsTotal        *prometheus.CounterVec
	RemoteCallDuration   *prometheus.HistogramVec
	IdentityTransitions  *prometheus.CounterVec
	StaleResponsesTotal  *prometheus.CounterVec
	CredentialsInSession prometheus.Gauge
}

// New registers session collectors with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycpass_session_commands_total",
			Help: "Total number of session commands, labeled by command and outcome",
		}, []string{"command", "outcome"}),
		RemoteCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kycpass_identity_remote_call_duration_seconds",
			Help:    "Latency of identity service calls in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"command", "outcome"}),
		IdentityTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycpass_session_identity_transitions_total",
			Help: "Total number of account identity transitions, labeled by kind (bound, cleared)",
		}, []string{"kind"}),
		StaleResponsesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycpass_session_stale_responses_total",
			Help: "Total number of remote responses discarded because the account changed",
		}, []string{"command"}),
		CredentialsInSession: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kycpass_session_credentials",
			Help: "Number of credentials held in the current session snapshot",
		}),
	}
}

func (m *Metrics) ObserveCommand(command, outcome string) {
	m.CommandsTotal.WithLabelValues(command, outcome).Inc()
}

func (m *Metrics) ObserveRemoteCall(command string, elapsed time.Duration, ok bool) {
	outcome := OutcomeOK
	if !ok {
		outcome = OutcomeFailed
	}
	m.RemoteCallDuration.WithLabelValues(command, outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) IncrementIdentityTransitions(kind string) {
	m.IdentityTransitions.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementStaleResponses(command string) {
	m.StaleResponsesTotal.WithLabelValues(command).Inc()
}

func (m *Metrics) SetCredentialsInSession(n int) {
	m.CredentialsInSession.Set(float64(n))
}
