// Package middleware applies cooldown limits to HTTP routes by client address.
package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"medbridge/internal/cooldown"
	"medbridge/internal/cooldown/models"
	dErrors "medbridge/pkg/domain-errors"
	"medbridge/pkg/platform/httputil"
	"medbridge/pkg/requestcontext"
)

type Middleware struct {
	store    cooldown.Store
	limit    int
	window   time.Duration
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns limiting off, e.g. for local demos.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// New allows limit requests per client address per window.
func New(store cooldown.Store, limit int, window time.Duration, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		limit:  max(limit, 1),
		window: window,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("request rate limiting disabled")
	}
	return m
}

// LimitByIP limits requests per client IP within scope. Requests pass through
// when the store fails.
func (m *Middleware) LimitByIP(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			result, err := m.store.Allow(ctx, "ip:"+scope+":"+ip, m.limit, m.window)
			if err != nil {
				m.logger.ErrorContext(ctx, "failed to check request rate limit", "error", err, "scope", scope)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if !result.Allowed {
				m.logger.WarnContext(ctx, "request rate limit exceeded",
					"type", "audit",
					"scope", scope,
					"client_ip", ip,
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds()))))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests from this address, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
