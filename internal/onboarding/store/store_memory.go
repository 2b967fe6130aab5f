// Package store keeps live onboarding sessions in memory with an idle TTL.
package store

import (
	"context"
	"sync"
	"time"

	"medbridge/internal/onboarding/models"
	id "medbridge/pkg/domain"
	"medbridge/pkg/platform/sentinel"
)

// InMemorySessionStore holds sessions until they sit idle longer than ttl.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*models.Session
	ttl      time.Duration
	now      func() time.Time
}

func NewInMemorySessionStore(ttl time.Duration) *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[id.SessionID]*models.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// WithClock overrides the clock for tests.
func (s *InMemorySessionStore) WithClock(now func() time.Time) *InMemorySessionStore {
	s.now = now
	return s
}

// TTL is the idle timeout applied to sessions.
func (s *InMemorySessionStore) TTL() time.Duration {
	return s.ttl
}

// Create stamps the session with the store clock and stores it.
func (s *InMemorySessionStore) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return sentinel.ErrConflict
	}
	session.Open(s.now(), s.ttl)
	s.sessions[session.ID] = session
	return nil
}

// Get returns the live session and extends its idle deadline. Expired
// sessions are removed and reported as ErrNotFound.
func (s *InMemorySessionStore) Get(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !session.Touch(s.now(), s.ttl) {
		delete(s.sessions, sessionID)
		return nil, sentinel.ErrNotFound
	}
	return session, nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *InMemorySessionStore) Sweep(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for sid, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, sid)
			removed++
		}
	}
	return removed
}

// Count returns the number of stored sessions.
func (s *InMemorySessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RunSweeper sweeps every interval until ctx is done.
func (s *InMemorySessionStore) RunSweeper(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(ctx); n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}
