package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// Principal is the authenticated caller as the auth layer resolved it.
type Principal struct {
	AccountID string
	Address   string
}

// Authenticator resolves a bearer credential to a principal. The credential
// may be the account's long-lived token or a JWT session; the implementation
// decides which.
type Authenticator interface {
	AuthenticateRequest(ctx context.Context, credential string) (*Principal, error)
}

type contextKeyPrincipal struct{}

// GetPrincipal retrieves the authenticated principal, or nil.
func GetPrincipal(ctx context.Context) *Principal {
	p, _ := ctx.Value(contextKeyPrincipal{}).(*Principal)
	return p
}

// RequireAuth rejects requests without a valid Authorization bearer
// credential and stores the resolved principal in the request context.
func RequireAuth(auth Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			credential, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || credential == "" {
				logger.WarnContext(ctx, "missing bearer credential",
					"request_id", GetRequestID(ctx))
				writeUnauthorized(w, "missing or invalid Authorization header")
				return
			}

			principal, err := auth.AuthenticateRequest(ctx, credential)
			if err != nil {
				logger.WarnContext(ctx, "rejected bearer credential",
					"error", err, "request_id", GetRequestID(ctx))
				writeUnauthorized(w, "invalid or expired credential")
				return
			}

			ctx = context.WithValue(ctx, contextKeyPrincipal{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
