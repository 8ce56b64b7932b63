package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the client layer. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	AuthAttempts   *prometheus.CounterVec
	ScriptLoads    *prometheus.CounterVec
	GateDecisions  *prometheus.CounterVec
	PasswordResets *prometheus.CounterVec
}

// New creates the metrics and registers them with reg. Pass
// prometheus.NewRegistry() in tests so repeated construction does not collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AuthAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_auth_attempts_total",
			Help: "Authentication attempts by kind and outcome",
		}, []string{"kind", "outcome"}),
		ScriptLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_provider_script_loads_total",
			Help: "Provider script loads by provider and outcome",
		}, []string{"provider", "outcome"}),
		GateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_gate_decisions_total",
			Help: "Route gate decisions by gate and decision",
		}, []string{"gate", "decision"}),
		PasswordResets: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_password_resets_total",
			Help: "Password reset submissions by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveAuthAttempt records one session store transition attempt.
func (m *Metrics) ObserveAuthAttempt(kind, outcome string) {
	if m == nil {
		return
	}
	m.AuthAttempts.WithLabelValues(kind, outcome).Inc()
}

// ObserveScriptLoad records one provider script injection.
func (m *Metrics) ObserveScriptLoad(provider, outcome string) {
	if m == nil {
		return
	}
	m.ScriptLoads.WithLabelValues(provider, outcome).Inc()
}

// ObserveGateDecision records one gate evaluation.
func (m *Metrics) ObserveGateDecision(gate, decision string) {
	if m == nil {
		return
	}
	m.GateDecisions.WithLabelValues(gate, decision).Inc()
}

// ObservePasswordReset records one reset submission.
func (m *Metrics) ObservePasswordReset(outcome string) {
	if m == nil {
		return
	}
	m.PasswordResets.WithLabelValues(outcome).Inc()
}
