package http

import (
	"errors"
	"net/http"

	"github.com/nodewatchers/nodewatch/internal/auth/service"
	"github.com/nodewatchers/nodewatch/pkg/httpx"
	"github.com/nodewatchers/nodewatch/pkg/jwtx"
	"github.com/nodewatchers/nodewatch/pkg/slogx"
)

// writeServiceError maps service errors onto the JSON status envelope. The
// outcome rides in the envelope, not the HTTP status code; only unexpected
// internal failures surface as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *jwtx.InvalidError
	switch {
	case errors.Is(err, service.ErrBanned):
		httpx.WriteStatus(w, "banned", nil)
	case errors.Is(err, service.ErrUnknownScene):
		httpx.WriteStatus(w, "invalid_scene", nil)
	case errors.As(err, &invalid):
		httpx.WriteStatus(w, "invalid", httpx.Envelope{"reason": string(invalid.Reason)})
	case errors.Is(err, service.ErrChallengeExpired):
		httpx.WriteStatus(w, "expired", nil)
	case errors.Is(err, service.ErrSliderInput):
		httpx.WriteStatus(w, "invalid_input", nil)
	case errors.Is(err, service.ErrSliderMismatch):
		httpx.WriteStatus(w, "mismatch", nil)
	case errors.Is(err, service.ErrNoSceneToken):
		httpx.WriteStatus(w, "no_scene", nil)
	case errors.Is(err, service.ErrBadEnvelope):
		httpx.WriteStatus(w, "bad_envelope", nil)
	case errors.Is(err, service.ErrMissingFields):
		httpx.WriteStatus(w, "invalid_payload", nil)
	case errors.Is(err, service.ErrStalePayload):
		httpx.WriteStatus(w, "stale", nil)
	case errors.Is(err, service.ErrReplay):
		httpx.WriteStatus(w, "replay", nil)
	case errors.Is(err, service.ErrMFANotEnabled):
		httpx.WriteStatus(w, "mfa_not_enabled", nil)
	case errors.Is(err, service.ErrMFAAlreadyEnabled):
		httpx.WriteStatus(w, "mfa_already_enabled", nil)
	case errors.Is(err, service.ErrInvalidTOTPCode):
		httpx.WriteStatus(w, "invalid_code", nil)
	default:
		slogx.FromContext(r.Context()).Error("internal error", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.Envelope{"status": "error"})
	}
}

// decodeJSON reads a small JSON request body into v, answering with the
// invalid_payload envelope on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeBody(r, v); err != nil {
		httpx.WriteStatus(w, "invalid_payload", nil)
		return false
	}
	return true
}
