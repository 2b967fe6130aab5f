package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"medbridge/internal/onboarding/models"
	id "medbridge/pkg/domain"
	"medbridge/pkg/platform/sentinel"
)

type SessionStoreSuite struct {
	suite.Suite
	store *InMemorySessionStore
	now   time.Time
	ctx   context.Context
}

func TestSessionStoreSuite(t *testing.T) {
	suite.Run(t, new(SessionStoreSuite))
}

func (s *SessionStoreSuite) SetupTest() {
	s.now = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	s.store = NewInMemorySessionStore(30 * time.Minute).WithClock(func() time.Time { return s.now })
	s.ctx = context.Background()
}

func (s *SessionStoreSuite) newSession() *models.Session {
	session := models.NewSession(id.NewSessionID())
	s.Require().NoError(s.store.Create(s.ctx, session))
	return session
}

func (s *SessionStoreSuite) TestGetExtendsIdleDeadline() {
	session := s.newSession()

	s.now = s.now.Add(20 * time.Minute)
	_, err := s.store.Get(s.ctx, session.ID)
	s.Require().NoError(err)

	s.now = s.now.Add(20 * time.Minute)
	got, err := s.store.Get(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Same(session, got)
}

func (s *SessionStoreSuite) TestCreateStampsWithStoreClock() {
	session := models.NewSession(id.NewSessionID())
	s.Require().NoError(s.store.Create(s.ctx, session))

	s.Equal(s.now, session.CreatedAt())
	s.Equal(s.now, session.LastSeenAt())
	s.Equal(s.now.Add(30*time.Minute), session.ExpiresAt())

	s.now = s.now.Add(5 * time.Minute)
	_, err := s.store.Get(s.ctx, session.ID)
	s.Require().NoError(err)
	s.Equal(s.now, session.LastSeenAt())
	s.Equal(s.now.Add(30*time.Minute), session.ExpiresAt())
}

func (s *SessionStoreSuite) TestConcurrentGetAndRead() {
	session := s.newSession()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.store.Get(s.ctx, session.ID)
			s.NoError(err)
		}()
		go func() {
			defer wg.Done()
			s.False(session.ExpiresAt().IsZero())
			_ = session.Snapshot()
		}()
	}
	wg.Wait()
}

func (s *SessionStoreSuite) TestIdleSessionExpires() {
	session := s.newSession()
	s.now = s.now.Add(30 * time.Minute)

	_, err := s.store.Get(s.ctx, session.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.Equal(0, s.store.Count())
}

func (s *SessionStoreSuite) TestCreateDuplicateConflicts() {
	session := s.newSession()
	s.ErrorIs(s.store.Create(s.ctx, session), sentinel.ErrConflict)
}

func (s *SessionStoreSuite) TestSweep() {
	s.newSession()
	s.now = s.now.Add(10 * time.Minute)
	live := s.newSession()
	s.now = s.now.Add(25 * time.Minute)

	s.Equal(1, s.store.Sweep(s.ctx))
	_, err := s.store.Get(s.ctx, live.ID)
	s.NoError(err)
}

func (s *SessionStoreSuite) TestDelete() {
	session := s.newSession()
	s.Require().NoError(s.store.Delete(s.ctx, session.ID))
	_, err := s.store.Get(s.ctx, session.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
