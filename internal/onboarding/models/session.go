package models

import (
	"sync"
	"time"

	id "medbridge/pkg/domain"
)

// Session is one onboarding attempt. Machine transitions happen under the
// session lock; gate I/O happens outside it. The idle deadline is guarded by
// the same lock and stamped only by the session store's clock.
type Session struct {
	ID id.SessionID

	mu         sync.Mutex
	createdAt  time.Time
	lastSeenAt time.Time
	expiresAt  time.Time
	machine    *Machine
}

func NewSession(sessionID id.SessionID) *Session {
	return &Session{ID: sessionID, machine: NewMachine()}
}

// Open stamps creation and the first idle deadline.
func (s *Session) Open(now time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createdAt = now
	s.lastSeenAt = now
	s.expiresAt = now.Add(ttl)
}

// Touch extends the idle deadline. It reports false, leaving the session
// untouched, once the deadline has passed.
func (s *Session) Touch(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !now.Before(s.expiresAt) {
		return false
	}
	s.lastSeenAt = now
	s.expiresAt = now.Add(ttl)
	return true
}

// Expired reports whether the idle deadline has passed at now.
func (s *Session) Expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !now.Before(s.expiresAt)
}

func (s *Session) CreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createdAt
}

func (s *Session) LastSeenAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeenAt
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// Do runs fn with exclusive access to the machine.
func (s *Session) Do(fn func(m *Machine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.machine)
}

// Snapshot returns a copy of the machine taken under the lock.
func (s *Session) Snapshot() *Machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Clone()
}
