package middleware

import (
	"context"
	"net/http"
	"slotly/pkg/logger"
	"slotly/pkg/token"
	"strings"
)

const IdentityKey contextKey = "identity"

// Identity is the resolved caller: the only thing the domain services ever
// learn about the credential that carried it.
type Identity struct {
	UserID string
	Email  string
}

// Authenticate resolves a bearer token, when present, into an Identity stored
// on the request context. Requests without an Authorization header pass
// through anonymously; handlers that require authentication fail them with
// 401 via RequireIdentity. A present-but-invalid token is rejected here.
func Authenticate(tokens *token.Manager, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				rejectUnauthorized(w, log, r, "malformed Authorization header")
				return
			}

			userID, email, err := tokens.Verify(strings.TrimSpace(raw))
			if err != nil {
				rejectUnauthorized(w, log, r, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, Identity{
				UserID: userID,
				Email:  email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the authenticated caller, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(Identity)
	return identity, ok
}

func rejectUnauthorized(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Authentication failed",
		"request_id", requestIDFromContext(r.Context()),
		"path", r.URL.Path,
		"method", r.Method,
		"reason", reason,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Authentication required"}`))
}
