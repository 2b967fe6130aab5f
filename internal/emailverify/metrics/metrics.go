package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers code dispatch and confirmation.
type Metrics struct {
	CodesSent     *prometheus.CounterVec
	Confirmations *prometheus.CounterVec
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CodesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medbridge_email_codes_sent_total",
			Help: "Verification code send attempts by outcome",
		}, []string{"outcome"}), // outcome: "sent", "domain_rejected", "rate_limited", "dispatch_failed", "invalid_input"
		Confirmations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "medbridge_email_code_confirmations_total",
			Help: "Verification code confirmations by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncrementSent(outcome string) {
	if m != nil {
		m.CodesSent.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementConfirmation(outcome string) {
	if m != nil {
		m.Confirmations.WithLabelValues(outcome).Inc()
	}
}
