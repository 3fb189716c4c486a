package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"issuer-agent/pkg/httputil"
)

type createRegistryRequest struct {
	Address string          `json:"address"`
	Schema  json.RawMessage `json:"schema"`
}

// handleCreateRegistry creates an on-chain registry owned by a profile
// address. The call blocks until the chain confirms or the deadline passes.
func (h *Handler) handleCreateRegistry(w http.ResponseWriter, r *http.Request) {
	var req createRegistryRequest
	if err := httputil.Decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Address == "" || len(req.Schema) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "address and schema are required")
		return
	}

	reg, err := h.registries.Create(r.Context(), req.Address, req.Schema)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, reg)
}

func (h *Handler) handleGetRegistry(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registries.Get(r.Context(), chi.URLParam(r, "registryID"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

// handleListRegistries lists the registries created by ?address=.
func (h *Handler) handleListRegistries(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "address query parameter is required")
		return
	}
	regs, err := h.registries.List(r.Context(), address)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, regs)
}
