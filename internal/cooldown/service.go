// Package cooldown limits how often an action may repeat per key, backing the
// verification code resend timer.
package cooldown

import (
	"context"
	"fmt"
	"math"
	"time"

	"medbridge/internal/cooldown/models"
	dErrors "medbridge/pkg/domain-errors"
)

// Store records actions per key.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
	Reset(ctx context.Context, key string) error
}

// Limiter allows limit actions per key per window.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
}

// New builds a limiter. limit below one is treated as one.
func New(store Store, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: max(limit, 1), window: window}
}

// Window is the configured cooldown period.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Acquire records one action for key, or fails with CodeRateLimited and the
// remaining wait.
func (l *Limiter) Acquire(ctx context.Context, key string) (*models.Result, error) {
	res, err := l.store.Allow(ctx, key, l.limit, l.window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "cooldown store unavailable")
	}
	if !res.Allowed {
		seconds := int(math.Ceil(res.RetryAfter.Seconds()))
		return res, dErrors.New(dErrors.CodeRateLimited, fmt.Sprintf("please wait %d seconds before requesting another code", seconds))
	}
	return res, nil
}

// Release clears the cooldown for key.
func (l *Limiter) Release(ctx context.Context, key string) error {
	return l.store.Reset(ctx, key)
}
