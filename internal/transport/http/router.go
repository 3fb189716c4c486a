// Package httptransport is the HTTP edge: routing, auth, and translation
// between JSON and the domain services. No business logic lives here.
package httptransport

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"issuer-agent/internal/account"
	"issuer-agent/internal/credential"
	"issuer-agent/internal/platform/middleware"
	"issuer-agent/internal/profile"
	"issuer-agent/internal/registry"
	"issuer-agent/pkg/httputil"
)

// AccountService is the account surface the handlers need.
type AccountService interface {
	Create(ctx context.Context, name string) (*account.CreateResult, error)
	StartSession(ctx context.Context, token string) (string, error)
}

// ProfileService is the profile surface the handlers need.
type ProfileService interface {
	Create(ctx context.Context, pubName string) (*profile.CreateResult, error)
	Resolve(ctx context.Context, address string) (*profile.Resolved, error)
}

// RegistryService is the registry surface the handlers need.
type RegistryService interface {
	Create(ctx context.Context, address string, schema json.RawMessage) (*registry.Registry, error)
	Get(ctx context.Context, registryID string) (*registry.Registry, error)
	List(ctx context.Context, address string) ([]registry.Registry, error)
}

// CredentialService is the credential surface the handlers need.
type CredentialService interface {
	Issue(ctx context.Context, registryID, holderDID string, claim json.RawMessage) (*credential.Credential, error)
	Update(ctx context.Context, entryID string, claim json.RawMessage) (*credential.Credential, error)
	Revoke(ctx context.Context, entryID string) (*credential.Credential, error)
	Get(ctx context.Context, entryID string) (*credential.Credential, error)
	List(ctx context.Context, registryID string) ([]credential.Credential, error)
}

// Handler is the thin HTTP layer over the domain services.
type Handler struct {
	accounts    AccountService
	profiles    ProfileService
	registries  RegistryService
	credentials CredentialService
	logger      *slog.Logger
}

func NewHandler(accounts AccountService, profiles ProfileService, registries RegistryService, credentials CredentialService, logger *slog.Logger) *Handler {
	return &Handler{
		accounts:    accounts,
		profiles:    profiles,
		registries:  registries,
		credentials: credentials,
		logger:      logger,
	}
}

// NewRouter wires all endpoints. Account provisioning is admin-gated; the
// issuance surface requires an account credential.
func NewRouter(h *Handler, auth middleware.Authenticator, adminToken string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(h.logger))

	r.Get("/healthz", handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(requireAdminToken(adminToken, h.logger))
		r.Post("/admin/accounts", h.handleCreateAccount)
	})

	r.Post("/auth/session", h.handleStartSession)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(auth, h.logger))
		r.Use(timeoutMiddleware(60 * time.Second))

		r.Post("/profiles", h.handleCreateProfile)
		r.Get("/profiles/{address}", h.handleResolveProfile)

		r.Post("/registries", h.handleCreateRegistry)
		r.Get("/registries", h.handleListRegistries)
		r.Get("/registries/{registryID}", h.handleGetRegistry)
		r.Get("/registries/{registryID}/credentials", h.handleListCredentials)

		r.Post("/credentials", h.handleIssueCredential)
		r.Get("/credentials/{entryID}", h.handleGetCredential)
		r.Post("/credentials/{entryID}/update", h.handleUpdateCredential)
		r.Post("/credentials/{entryID}/revoke", h.handleRevokeCredential)
	})

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requireAdminToken(adminToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-Admin-Token")
			if adminToken == "" || subtle.ConstantTimeCompare([]byte(got), []byte(adminToken)) != 1 {
				logger.WarnContext(r.Context(), "rejected admin request",
					"request_id", middleware.GetRequestID(r.Context()))
				httputil.WriteError(w, http.StatusForbidden, "forbidden", "admin token required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// timeoutMiddleware bounds request handling. Generous because issuance calls
// block on chain confirmation.
func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
