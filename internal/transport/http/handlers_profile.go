package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"issuer-agent/pkg/httputil"
)

type createProfileRequest struct {
	PubName string `json:"pubName"`
}

// handleCreateProfile funds a fresh account and sets its profile on chain.
// The response carries the mnemonic exactly once.
func (h *Handler) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := httputil.Decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.PubName == "" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "pubName is required")
		return
	}

	res, err := h.profiles.Create(r.Context(), req.PubName)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

// handleResolveProfile resolves an address through the cache-fallback chain.
func (h *Handler) handleResolveProfile(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	resolved, err := h.profiles.Resolve(r.Context(), address)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resolved)
}
