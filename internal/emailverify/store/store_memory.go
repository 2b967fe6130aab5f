package store

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"medbridge/internal/emailverify/models"
	"medbridge/pkg/platform/sentinel"
)

// InMemoryCodeStore holds one pending code per address.
type InMemoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]models.PendingCode
}

func NewInMemoryCodeStore() *InMemoryCodeStore {
	return &InMemoryCodeStore{codes: make(map[string]models.PendingCode)}
}

// Put binds code to its address, replacing any previous code.
func (s *InMemoryCodeStore) Put(_ context.Context, code models.PendingCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code.Email] = code
	return nil
}

// Consume deletes and accepts the pending code for email when it equals code
// and has not expired. A wrong code leaves the pending code in place.
func (s *InMemoryCodeStore) Consume(_ context.Context, email, code string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, ok := s.codes[email]
	if !ok {
		return sentinel.ErrNotFound
	}
	if pending.IsExpired(now) {
		delete(s.codes, email)
		return sentinel.ErrExpired
	}
	if !codesEqual(pending.Code, code) {
		return models.ErrCodeMismatch
	}
	delete(s.codes, email)
	return nil
}

func (s *InMemoryCodeStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, email)
	return nil
}

// Sweep removes expired codes.
func (s *InMemoryCodeStore) Sweep(_ context.Context, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for email, pending := range s.codes {
		if pending.IsExpired(now) {
			delete(s.codes, email)
			removed++
		}
	}
	return removed
}

func codesEqual(stored, submitted string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}
