package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"medbridge/internal/registry/models"
	"medbridge/pkg/platform/sentinel"
)

const keyPrefix = "registry:record:"

// RedisCache shares registry records between instances. Entries expire by
// Redis TTL.
type RedisCache struct {
	client   redis.UniversalClient
	cacheTTL time.Duration
}

func NewRedisCache(client redis.UniversalClient, cacheTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, cacheTTL: cacheTTL}
}

func (c *RedisCache) Save(ctx context.Context, record *models.Record) error {
	if record == nil {
		return nil
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode registry record: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+record.LicenseNumber, payload, c.cacheTTL).Err(); err != nil {
		return fmt.Errorf("cache registry record: %w", err)
	}
	return nil
}

func (c *RedisCache) Find(ctx context.Context, license string) (*models.Record, error) {
	payload, err := c.client.Get(ctx, keyPrefix+license).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read cached registry record: %w", err)
	}
	var record models.Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("decode cached registry record: %w", err)
	}
	return &record, nil
}
