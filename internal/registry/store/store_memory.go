package store

import (
	"context"
	"sync"
	"time"

	"medbridge/internal/registry/models"
	"medbridge/pkg/platform/sentinel"
)

type cachedRecord struct {
	record   models.Record
	storedAt time.Time
}

// InMemoryCache caches registry records by licence number with TTL expiration.
type InMemoryCache struct {
	mu       sync.RWMutex
	records  map[string]cachedRecord
	cacheTTL time.Duration
	now      func() time.Time
}

// NewInMemoryCache creates a new in-memory cache with the specified TTL.
func NewInMemoryCache(cacheTTL time.Duration) *InMemoryCache {
	return &InMemoryCache{
		records:  make(map[string]cachedRecord),
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Save stores a record keyed by licence number. A nil record is a no-op.
func (c *InMemoryCache) Save(_ context.Context, record *models.Record) error {
	if record == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[record.LicenseNumber] = cachedRecord{record: cloneRecord(*record), storedAt: c.now()}
	return nil
}

// Find returns sentinel.ErrNotFound when the record is missing or older than
// the cache TTL.
func (c *InMemoryCache) Find(_ context.Context, license string) (*models.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cached, ok := c.records[license]; ok && c.now().Sub(cached.storedAt) < c.cacheTTL {
		rec := cloneRecord(cached.record)
		return &rec, nil
	}
	return nil, sentinel.ErrNotFound
}

// Purge drops expired entries.
func (c *InMemoryCache) Purge(_ context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, v := range c.records {
		if c.now().Sub(v.storedAt) >= c.cacheTTL {
			delete(c.records, k)
			removed++
		}
	}
	return removed
}

func cloneRecord(r models.Record) models.Record {
	r.Specialties = append([]string(nil), r.Specialties...)
	return r
}
