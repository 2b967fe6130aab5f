package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"medbridge/internal/emailverify/models"
	"medbridge/pkg/platform/sentinel"
)

type InMemoryCodeStoreSuite struct {
	suite.Suite
	store *InMemoryCodeStore
	now   time.Time
	ctx   context.Context
}

func TestInMemoryCodeStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryCodeStoreSuite))
}

func (s *InMemoryCodeStoreSuite) SetupTest() {
	s.store = NewInMemoryCodeStore()
	s.now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = context.Background()
}

func (s *InMemoryCodeStoreSuite) pending(email, code string) models.PendingCode {
	return models.PendingCode{Code: code, Email: email, IssuedAt: s.now, ExpiresAt: s.now.Add(10 * time.Minute)}
}

func (s *InMemoryCodeStoreSuite) TestConsume() {
	s.Require().NoError(s.store.Put(s.ctx, s.pending("jane@nhs.net", "451452")))

	s.ErrorIs(s.store.Consume(s.ctx, "jane@nhs.net", "000000", s.now), models.ErrCodeMismatch)
	s.ErrorIs(s.store.Consume(s.ctx, "john@nhs.net", "451452", s.now), sentinel.ErrNotFound)

	s.NoError(s.store.Consume(s.ctx, "jane@nhs.net", "451452", s.now))
	s.ErrorIs(s.store.Consume(s.ctx, "jane@nhs.net", "451452", s.now), sentinel.ErrNotFound)
}

func (s *InMemoryCodeStoreSuite) TestPutSupersedes() {
	s.Require().NoError(s.store.Put(s.ctx, s.pending("jane@nhs.net", "111111")))
	s.Require().NoError(s.store.Put(s.ctx, s.pending("jane@nhs.net", "222222")))

	s.ErrorIs(s.store.Consume(s.ctx, "jane@nhs.net", "111111", s.now), models.ErrCodeMismatch)
	s.NoError(s.store.Consume(s.ctx, "jane@nhs.net", "222222", s.now))
}

func (s *InMemoryCodeStoreSuite) TestExpiry() {
	s.Require().NoError(s.store.Put(s.ctx, s.pending("jane@nhs.net", "451452")))
	s.Require().NoError(s.store.Put(s.ctx, s.pending("john@nhs.net", "123456")))

	later := s.now.Add(10 * time.Minute)
	s.ErrorIs(s.store.Consume(s.ctx, "jane@nhs.net", "451452", later), sentinel.ErrExpired)
	s.ErrorIs(s.store.Consume(s.ctx, "jane@nhs.net", "451452", later), sentinel.ErrNotFound)

	s.Equal(1, s.store.Sweep(s.ctx, later))
}

func (s *InMemoryCodeStoreSuite) TestDelete() {
	s.Require().NoError(s.store.Put(s.ctx, s.pending("jane@nhs.net", "451452")))
	s.Require().NoError(s.store.Delete(s.ctx, "jane@nhs.net"))
	s.ErrorIs(s.store.Consume(s.ctx, "jane@nhs.net", "451452", s.now), sentinel.ErrNotFound)
}
