package circuit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(clock *fakeClock) *Breaker {
	return New("registry",
		WithFailureThreshold(2),
		WithSuccessThreshold(2),
		WithCooldown(30*time.Second),
		WithClock(clock.Now),
	)
}

func TestBreakerDefaults(t *testing.T) {
	b := New("registry")
	assert.Equal(t, "registry", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "closed", b.State().String())

	for range 4 {
		useFallback, _ := b.RecordFailure()
		assert.False(t, useFallback)
	}
	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)
	assert.Equal(t, "open", b.State().String())
}

func TestBreakerLifecycle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	b := newTestBreaker(clock)

	_, change := b.RecordFailure()
	assert.False(t, change.Opened)
	_, change = b.RecordFailure()
	require.True(t, change.Opened)
	assert.True(t, b.IsOpen())

	assert.False(t, b.Allow(), "no probe before cooldown")
	clock.Advance(29 * time.Second)
	assert.False(t, b.Allow())

	clock.Advance(time.Second)
	assert.True(t, b.Allow(), "one probe once the cooldown elapses")
	assert.False(t, b.Allow(), "second probe waits another cooldown")

	usePrimary, change := b.RecordSuccess()
	assert.False(t, usePrimary)
	assert.False(t, change.Closed)

	clock.Advance(30 * time.Second)
	require.True(t, b.Allow())
	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
	assert.True(t, b.Allow())
}

func TestBreakerFailureWhileOpenRestartsRecovery(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	b := newTestBreaker(clock)
	b.RecordFailure()
	b.RecordFailure()

	b.RecordSuccess()
	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.False(t, change.Opened, "already open")

	_, change = b.RecordSuccess()
	assert.False(t, change.Closed, "success streak restarted")
	assert.True(t, b.IsOpen())
}

func TestBreakerSuccessClearsFailureStreak(t *testing.T) {
	b := newTestBreaker(&fakeClock{})
	b.RecordFailure()
	b.RecordSuccess()
	_, change := b.RecordFailure()
	assert.False(t, change.Opened)
	assert.False(t, b.IsOpen())
}

func TestBreakerReset(t *testing.T) {
	b := newTestBreaker(&fakeClock{})
	b.RecordFailure()
	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
}
