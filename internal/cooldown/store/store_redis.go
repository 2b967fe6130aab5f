package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"medbridge/internal/cooldown/models"
)

const keyPrefix = "cooldown:"

// RedisStore is a fixed-window limiter shared across instances. With limit 1
// it degenerates to SET NX PX, which is the resend cooldown case.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	k := keyPrefix + key
	if limit <= 1 {
		ok, err := s.client.SetNX(ctx, k, 1, window).Result()
		if err != nil {
			return nil, fmt.Errorf("cooldown setnx: %w", err)
		}
		if ok {
			return &models.Result{Allowed: true, Limit: 1, ResetAt: time.Now().Add(window)}, nil
		}
		return s.denied(ctx, k, 1, window)
	}

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("cooldown incr: %w", err)
	}
	count := int(incr.Val())
	if count <= limit {
		return &models.Result{Allowed: true, Limit: limit, Remaining: limit - count, ResetAt: time.Now().Add(window)}, nil
	}
	return s.denied(ctx, k, limit, window)
}

func (s *RedisStore) denied(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error) {
	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("cooldown pttl: %w", err)
	}
	if ttl < 0 {
		ttl = window
	}
	return &models.Result{
		Allowed:    false,
		Limit:      limit,
		ResetAt:    time.Now().Add(ttl),
		RetryAfter: ttl,
	}, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}
