package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "medbridge/pkg/domain"
	dErrors "medbridge/pkg/domain-errors"
	"medbridge/pkg/platform/httputil"
	"medbridge/pkg/requestcontext"
)

// SessionClaims is what the session middleware needs from a validated handle.
type SessionClaims struct {
	SessionID string
	TokenID   string
}

// SessionTokenValidator validates onboarding session handles.
type SessionTokenValidator interface {
	ValidateToken(tokenString string) (*SessionClaims, error)
}

// RequireSession rejects requests without a valid bearer session handle and
// stores the resolved session ID in the request context.
func RequireSession(validator SessionTokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing session token")
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid session token",
					"type", "audit",
					"error", err,
					"client_ip", requestcontext.ClientIP(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired session token"))
				return
			}

			sessionID, err := id.ParseSessionID(claims.SessionID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed session claim", "error", err)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid session token"))
				return
			}

			ctx = requestcontext.WithSessionID(ctx, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
