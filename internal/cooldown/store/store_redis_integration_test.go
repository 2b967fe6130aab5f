//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"medbridge/internal/cooldown/store"
	"medbridge/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = store.NewRedisStore(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestSingleShotCooldown() {
	ctx := context.Background()

	res, err := s.store.Allow(ctx, "jane.doe@nhs.net", 1, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)

	res, err = s.store.Allow(ctx, "jane.doe@nhs.net", 1, time.Minute)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Greater(res.RetryAfter, 50*time.Second)

	s.Require().NoError(s.store.Reset(ctx, "jane.doe@nhs.net"))
	res, err = s.store.Allow(ctx, "jane.doe@nhs.net", 1, time.Minute)
	s.Require().NoError(err)
	s.True(res.Allowed)
}

func (s *RedisStoreSuite) TestCountedWindow() {
	ctx := context.Background()
	for range 3 {
		res, err := s.store.Allow(ctx, "burst", 3, time.Minute)
		s.Require().NoError(err)
		s.True(res.Allowed)
	}
	res, err := s.store.Allow(ctx, "burst", 3, time.Minute)
	s.Require().NoError(err)
	s.False(res.Allowed)
}
