// Package events publishes onboarding step transitions to in-process
// subscribers.
package events

import (
	"sync"
	"time"

	accountmodels "medbridge/internal/accounts/models"
	"medbridge/internal/onboarding/models"
)

// Reason says what moved the machine.
type Reason string

const (
	ReasonStarted  Reason = "started"
	ReasonRole     Reason = "role_selected"
	ReasonVerified Reason = "verified"
	ReasonFailed   Reason = "failed"
	ReasonSkipped  Reason = "skipped"
	ReasonBack     Reason = "back"
	ReasonContinue Reason = "continue"
	ReasonReset    Reason = "reset"
	ReasonComplete Reason = "completed"
)

// StepChanged is published after every state change of a session.
type StepChanged struct {
	SessionID string
	Role      accountmodels.Role
	From      models.Step
	To        models.Step
	Gate      models.Step
	Status    models.Status
	Reason    Reason
	Epoch     uint64
	At        time.Time
}

// Bus fans events out to subscribers. Publishing never blocks: a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscription receives events on C until Close.
type Subscription struct {
	C   <-chan StepChanged
	ch  chan StepChanged
	bus *Bus
}

// Subscribe registers a subscriber with the given buffer size.
func (b *Bus) Subscribe(buffer int) *Subscription {
	ch := make(chan StepChanged, max(buffer, 1))
	sub := &Subscription{C: ch, ch: ch, bus: b}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Publish delivers event to every subscriber with room in its buffer and
// returns how many subscribers missed it.
func (b *Bus) Publish(event StepChanged) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	missed := 0
	for sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			missed++
		}
	}
	return missed
}

// Close unregisters every subscriber and closes their channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.ch)
		delete(b.subs, sub)
	}
}

// Close unregisters the subscription and closes C.
func (s *Subscription) Close() {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; ok {
		delete(b.subs, s)
		close(s.ch)
	}
}
