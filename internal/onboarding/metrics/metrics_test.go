package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"medbridge/internal/onboarding/events"
	"medbridge/internal/onboarding/models"
)

func TestConsumeObservesTransitions(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())
	bus := events.NewBus()
	sub := bus.Subscribe(8)

	done := make(chan struct{})
	go func() {
		m.Consume(context.Background(), sub)
		close(done)
	}()

	bus.Publish(events.StepChanged{Role: "uk_specialist", Gate: models.StepDocumentMatch, To: models.StepBiometricCapture, Reason: events.ReasonSkipped})
	bus.Publish(events.StepChanged{Role: "uk_specialist", Gate: models.StepBiometricCapture, To: models.StepBiometricCapture, Reason: events.ReasonFailed})
	bus.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after bus close")
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GateOutcomes.WithLabelValues("document_match", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GateOutcomes.WithLabelValues("biometric_capture", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StepTransitions.WithLabelValues("uk_specialist", "biometric_capture", "skipped")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.Observe(events.StepChanged{})
	m.IncrementAccountCreated("uk_specialist", "pending")
	m.SetActiveSessions(3)
	m.IncrementStaleResult()
}
