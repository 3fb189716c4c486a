package httptransport

import (
	"errors"
	"net/http"

	"issuer-agent/internal/ledger/correlator"
	"issuer-agent/internal/ledger/poller"
	"issuer-agent/pkg/httputil"
	"issuer-agent/pkg/sentinel"
)

// writeError translates service failures into the JSON error envelope. The
// coordinator's typed errors unwrap to the sentinels below, so one mapping
// covers both the direct store paths and the full issuance flows.
func writeError(w http.ResponseWriter, err error) {
	var notFoundAfterRetries *poller.NotFoundAfterRetriesError

	switch {
	case errors.Is(err, httputil.ErrBadBody):
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, sentinel.ErrUnauthorized):
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired credential")
	case errors.Is(err, sentinel.ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, sentinel.ErrConflict):
		httputil.WriteError(w, http.StatusConflict, "conflict", "resource already exists")
	case errors.Is(err, sentinel.ErrInvalidState):
		httputil.WriteError(w, http.StatusUnprocessableEntity, "invalid_state", err.Error())
	case errors.Is(err, correlator.ErrOperationTimeout):
		// The operation may still land on chain; the caller decides whether
		// resubmitting is safe.
		httputil.WriteError(w, http.StatusGatewayTimeout, "confirmation_timeout", "operation not confirmed within the deadline")
	case errors.As(err, &notFoundAfterRetries):
		httputil.WriteError(w, http.StatusGatewayTimeout, "confirmation_pending", "operation not yet visible, retry later")
	case errors.Is(err, sentinel.ErrUnavailable):
		httputil.WriteError(w, http.StatusServiceUnavailable, "upstream_unavailable", "chain node unavailable")
	default:
		httputil.WriteError(w, http.StatusInternalServerError, "internal_error", "")
	}
}
