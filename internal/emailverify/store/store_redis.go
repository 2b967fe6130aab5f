package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"medbridge/internal/emailverify/models"
	"medbridge/pkg/platform/sentinel"
)

const codeKeyPrefix = "emailverify:code:"

// RedisCodeStore keeps pending codes in Redis with the code TTL as key expiry.
type RedisCodeStore struct {
	client redis.UniversalClient
}

func NewRedisCodeStore(client redis.UniversalClient) *RedisCodeStore {
	return &RedisCodeStore{client: client}
}

func (s *RedisCodeStore) Put(ctx context.Context, code models.PendingCode) error {
	ttl := time.Until(code.ExpiresAt)
	if ttl <= 0 {
		return sentinel.ErrExpired
	}
	payload, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("marshal pending code: %w", err)
	}
	if err := s.client.Set(ctx, codeKeyPrefix+code.Email, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store pending code: %w", err)
	}
	return nil
}

// Consume compares and deletes under WATCH so two concurrent confirmations
// cannot both succeed.
func (s *RedisCodeStore) Consume(ctx context.Context, email, code string, now time.Time) error {
	key := codeKeyPrefix + email
	var result error
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			result = sentinel.ErrNotFound
			return nil
		}
		if err != nil {
			return err
		}
		var pending models.PendingCode
		if err := json.Unmarshal(raw, &pending); err != nil {
			return fmt.Errorf("decode pending code: %w", err)
		}
		if pending.IsExpired(now) {
			result = sentinel.ErrExpired
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}
		if !codesEqual(pending.Code, code) {
			result = models.ErrCodeMismatch
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		// Superseded or consumed by a concurrent request.
		return models.ErrCodeMismatch
	}
	if err != nil {
		return fmt.Errorf("consume pending code: %w", err)
	}
	return result
}

func (s *RedisCodeStore) Delete(ctx context.Context, email string) error {
	return s.client.Del(ctx, codeKeyPrefix+email).Err()
}
