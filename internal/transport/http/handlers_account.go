package httptransport

import (
	"net/http"

	"issuer-agent/pkg/httputil"
)

type createAccountRequest struct {
	Name string `json:"name"`
}

// handleCreateAccount provisions an API consumer. Admin-gated; the response
// carries the bearer token exactly once.
func (h *Handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httputil.Decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", "name is required")
		return
	}

	res, err := h.accounts.Create(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

type sessionRequest struct {
	Token string `json:"token"`
}

type sessionResponse struct {
	SessionToken string `json:"sessionToken"`
}

// handleStartSession exchanges an account bearer token for a short-lived JWT.
func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := httputil.Decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.accounts.StartSession(r.Context(), req.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sessionResponse{SessionToken: session})
}
