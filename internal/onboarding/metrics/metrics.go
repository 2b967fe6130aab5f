package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"medbridge/internal/onboarding/events"
)

// Metrics tracks onboarding progress.
type Metrics struct {
	StepTransitions *prometheus.CounterVec
	GateOutcomes    *prometheus.CounterVec
	AccountsCreated *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	StaleResults    prometheus.Counter
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StepTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medbridge_onboarding_step_transitions_total",
			Help: "Onboarding step transitions",
		}, []string{"role", "to", "reason"}),
		GateOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medbridge_onboarding_gate_outcomes_total",
			Help: "Gate results by step and outcome",
		}, []string{"step", "outcome"}), // outcome: "verified", "failed", "skipped"
		AccountsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medbridge_onboarding_accounts_created_total",
			Help: "Accounts materialized at completion",
		}, []string{"role", "status"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "medbridge_onboarding_active_sessions",
			Help: "Onboarding sessions currently held in memory",
		}),
		StaleResults: factory.NewCounter(prometheus.CounterOpts{
			Name: "medbridge_onboarding_stale_results_total",
			Help: "Gate results discarded because the session moved on",
		}),
	}
}

func (m *Metrics) IncrementAccountCreated(role, status string) {
	if m != nil {
		m.AccountsCreated.WithLabelValues(role, status).Inc()
	}
}

func (m *Metrics) SetActiveSessions(n int) {
	if m != nil {
		m.ActiveSessions.Set(float64(n))
	}
}

func (m *Metrics) IncrementStaleResult() {
	if m != nil {
		m.StaleResults.Inc()
	}
}

// Observe records one step change.
func (m *Metrics) Observe(ev events.StepChanged) {
	if m == nil {
		return
	}
	m.StepTransitions.WithLabelValues(string(ev.Role), string(ev.To), string(ev.Reason)).Inc()
	switch ev.Reason {
	case events.ReasonVerified, events.ReasonFailed, events.ReasonSkipped:
		m.GateOutcomes.WithLabelValues(string(ev.Gate), string(ev.Reason)).Inc()
	}
}

// Consume observes events from sub until ctx is done or the subscription
// closes.
func (m *Metrics) Consume(ctx context.Context, sub *events.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			m.Observe(ev)
		}
	}
}
