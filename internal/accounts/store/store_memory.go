// Package store holds the append-only pending and approved account lists.
package store

import (
	"context"
	"sync"

	"medbridge/internal/accounts/models"
	id "medbridge/pkg/domain"
	"medbridge/pkg/platform/sentinel"
)

// InMemoryStore keeps accounts for the lifetime of the process.
type InMemoryStore struct {
	mu        sync.RWMutex
	pending   []*models.Account
	approved  []*models.Account
	bySession map[id.SessionID]*models.Account
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{bySession: make(map[id.SessionID]*models.Account)}
}

// Create appends account to the list its status selects. A second call for
// the same session returns the account created first.
func (s *InMemoryStore) Create(_ context.Context, account *models.Account) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.bySession[account.SessionID]; ok {
		return existing.Clone(), nil
	}
	stored := account.Clone()
	s.bySession[stored.SessionID] = stored
	if stored.IsApproved() {
		s.approved = append(s.approved, stored)
	} else {
		s.pending = append(s.pending, stored)
	}
	return stored.Clone(), nil
}

func (s *InMemoryStore) FindBySession(_ context.Context, sessionID id.SessionID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.bySession[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return account.Clone(), nil
}

func (s *InMemoryStore) ListPending(_ context.Context) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.pending), nil
}

func (s *InMemoryStore) ListApproved(_ context.Context) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.approved), nil
}

func cloneAll(in []*models.Account) []*models.Account {
	out := make([]*models.Account, 0, len(in))
	for _, a := range in {
		out = append(out, a.Clone())
	}
	return out
}
