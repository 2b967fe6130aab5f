package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medbridge/internal/onboarding/models"
)

func TestBus_PublishToSubscribers(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe(4)
	b := bus.Subscribe(4)

	missed := bus.Publish(StepChanged{SessionID: "s1", From: models.StepRoleSelect, To: models.StepReferralCode})
	assert.Zero(t, missed)

	for _, sub := range []*Subscription{a, b} {
		ev := <-sub.C
		assert.Equal(t, models.StepReferralCode, ev.To)
	}
}

func TestBus_FullSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(1)

	assert.Zero(t, bus.Publish(StepChanged{SessionID: "first"}))
	assert.Equal(t, 1, bus.Publish(StepChanged{SessionID: "second"}))

	ev := <-sub.C
	assert.Equal(t, "first", ev.SessionID)
}

func TestBus_CloseSubscription(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(1)
	sub.Close()
	sub.Close()

	_, ok := <-sub.C
	require.False(t, ok)
	assert.Zero(t, bus.Publish(StepChanged{}))
}

func TestBus_Close(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(1)
	bus.Close()

	_, ok := <-sub.C
	assert.False(t, ok)

	late := bus.Subscribe(1)
	_, ok = <-late.C
	assert.False(t, ok)
}
