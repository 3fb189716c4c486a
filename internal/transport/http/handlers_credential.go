package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"issuer-agent/pkg/httputil"
)

type issueCredentialRequest struct {
	RegistryID string          `json:"registryId"`
	HolderDID  string          `json:"holderDid"`
	Claim      json.RawMessage `json:"claim"`
}

// handleIssueCredential anchors a claim digest in a registry. Only the digest
// leaves this handler; the claim contents are never stored.
func (h *Handler) handleIssueCredential(w http.ResponseWriter, r *http.Request) {
	var req issueCredentialRequest
	if err := httputil.Decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.RegistryID == "" || req.HolderDID == "" || len(req.Claim) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "registryId, holderDid and claim are required")
		return
	}

	cred, err := h.credentials.Issue(r.Context(), req.RegistryID, req.HolderDID, req.Claim)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, cred)
}

type updateCredentialRequest struct {
	Claim json.RawMessage `json:"claim"`
}

// handleUpdateCredential anchors a new digest for an existing entry.
func (h *Handler) handleUpdateCredential(w http.ResponseWriter, r *http.Request) {
	var req updateCredentialRequest
	if err := httputil.Decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Claim) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "claim is required")
		return
	}

	cred, err := h.credentials.Update(r.Context(), chi.URLParam(r, "entryID"), req.Claim)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cred)
}

func (h *Handler) handleRevokeCredential(w http.ResponseWriter, r *http.Request) {
	cred, err := h.credentials.Revoke(r.Context(), chi.URLParam(r, "entryID"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cred)
}

func (h *Handler) handleGetCredential(w http.ResponseWriter, r *http.Request) {
	cred, err := h.credentials.Get(r.Context(), chi.URLParam(r, "entryID"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cred)
}

func (h *Handler) handleListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.credentials.List(r.Context(), chi.URLParam(r, "registryID"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, creds)
}
