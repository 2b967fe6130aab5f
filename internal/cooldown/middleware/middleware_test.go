package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medbridge/internal/cooldown/models"
	"medbridge/internal/cooldown/store"
	"medbridge/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*models.Result, error) {
	return nil, errors.New("redis down")
}

func (failingStore) Reset(context.Context, string) error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serve(t *testing.T, h http.Handler, ip string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/onboarding/sessions", nil)
	req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "test-agent"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
}

func TestLimitByIP(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mem := store.NewInMemoryStore().WithClock(func() time.Time { return now })
	h := New(mem, 2, time.Minute, discardLogger()).LimitByIP("session_start")(okHandler())

	t.Run("requests within the limit pass", func(t *testing.T) {
		rr := serve(t, h, "10.0.0.1")
		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Remaining"))

		rr = serve(t, h, "10.0.0.1")
		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("excess request is rejected with retry hint", func(t *testing.T) {
		rr := serve(t, h, "10.0.0.1")
		require.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "60", rr.Header().Get("Retry-After"))
		assert.Contains(t, rr.Body.String(), `"error":"rate_limited"`)
	})

	t.Run("other addresses are independent", func(t *testing.T) {
		rr := serve(t, h, "10.0.0.2")
		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("window elapses", func(t *testing.T) {
		now = now.Add(61 * time.Second)
		rr := serve(t, h, "10.0.0.1")
		assert.Equal(t, http.StatusCreated, rr.Code)
	})
}

func TestLimitByIPFailsOpen(t *testing.T) {
	h := New(failingStore{}, 1, time.Minute, discardLogger()).LimitByIP("session_start")(okHandler())
	for range 3 {
		rr := serve(t, h, "10.0.0.1")
		assert.Equal(t, http.StatusCreated, rr.Code)
	}
}

func TestLimitByIPDisabled(t *testing.T) {
	h := New(failingStore{}, 1, time.Minute, discardLogger(), WithDisabled(true)).LimitByIP("session_start")(okHandler())
	rr := serve(t, h, "10.0.0.1")
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
}
