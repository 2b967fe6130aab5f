package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "medbridge/pkg/domain-errors"
)

func TestStatusFor(t *testing.T) {
	tests := map[dErrors.Code]int{
		dErrors.CodeInvalidInput:        http.StatusBadRequest,
		dErrors.CodeValidation:          http.StatusBadRequest,
		dErrors.CodeUnauthorized:        http.StatusUnauthorized,
		dErrors.CodePolicyBlocked:       http.StatusForbidden,
		dErrors.CodeNotFound:            http.StatusNotFound,
		dErrors.CodeConflict:            http.StatusConflict,
		dErrors.CodeInvariantViolation:  http.StatusConflict,
		dErrors.CodeMismatch:            http.StatusUnprocessableEntity,
		dErrors.CodeResourceUnavailable: http.StatusFailedDependency,
		dErrors.CodeRateLimited:         http.StatusTooManyRequests,
		dErrors.CodeUnavailable:         http.StatusServiceUnavailable,
		dErrors.CodeTimeout:             http.StatusGatewayTimeout,
		dErrors.CodeInternal:            http.StatusInternalServerError,
	}
	for code, status := range tests {
		t.Run(string(code), func(t *testing.T) {
			assert.Equal(t, status, StatusFor(code))
		})
	}
}

func TestWriteError(t *testing.T) {
	t.Run("domain error is described", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodePolicyBlocked, "referral code rejected"))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"error":"policy_blocked","error_description":"referral code rejected"}`, w.Body.String())
	})

	t.Run("internal error hides its message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"internal_error"}`, w.Body.String())
	})

	t.Run("foreign error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("driver: bad connection"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "driver")
	})
}

func TestDescribeUsesOutermostMessage(t *testing.T) {
	err := dErrors.Wrap(errors.New("dial tcp: refused"), dErrors.CodeUnavailable, "registry is unavailable, please retry")
	code, desc := Describe(err)
	require.Equal(t, dErrors.CodeUnavailable, code)
	assert.Equal(t, "registry is unavailable, please retry", desc)
}
