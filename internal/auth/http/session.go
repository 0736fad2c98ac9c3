package http

import (
	"errors"
	"net/http"

	"github.com/nodewatchers/nodewatch/internal/auth/service"
	"github.com/nodewatchers/nodewatch/pkg/httpx"
	"github.com/nodewatchers/nodewatch/pkg/jwtx"
)

// SessionHandler covers everything driven by the account cookie: the
// session probe, logout, and visit-token minting.
type SessionHandler struct {
	Accounts *service.AccountTokenService
	Visits   *service.VisitTokenService
}

// HandleSession probes the account cookie. A valid session refreshes the
// display cookie; anything else clears both cookies and points the client
// back at the login page.
func (h *SessionHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	token, ok := accountCookie(r)
	if !ok {
		h.rejectSession(w, jwtx.ReasonFormat)
		return
	}

	identity, err := h.Accounts.Validate(r.Context(), token)
	if err != nil {
		var invalid *jwtx.InvalidError
		if errors.As(err, &invalid) {
			h.rejectSession(w, invalid.Reason)
			return
		}
		writeServiceError(w, r, err)
		return
	}

	setSessionCookies(w, r, token, identity.Username)
	httpx.WriteStatus(w, "ok", httpx.Envelope{
		"username": identity.Username,
		"admin":    identity.Admin,
	})
}

// HandleLogout revokes the account token and clears the cookies. Logging
// out without a session is not an error.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := accountCookie(r); ok {
		if err := h.Accounts.Revoke(r.Context(), token); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	clearSessionCookies(w)
	httpx.WriteStatus(w, "ok", nil)
}

// HandleMintVisit exchanges the account cookie for a short-lived visit
// token the API surface accepts as a bearer credential.
func (h *SessionHandler) HandleMintVisit(w http.ResponseWriter, r *http.Request) {
	token, ok := accountCookie(r)
	if !ok {
		h.rejectSession(w, jwtx.ReasonFormat)
		return
	}

	visitToken, err := h.Visits.Issue(r.Context(), token, httpx.ClientIP(r))
	if err != nil {
		var invalid *jwtx.InvalidError
		if errors.As(err, &invalid) {
			h.rejectSession(w, invalid.Reason)
			return
		}
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteStatus(w, "ok", httpx.Envelope{
		"visit_token": visitToken,
		"expires_in":  int(service.VisitTokenTTL.Seconds()),
	})
}

// rejectSession clears the cookies and tells the client where to go next in
// a machine-readable way.
func (h *SessionHandler) rejectSession(w http.ResponseWriter, reason jwtx.Reason) {
	clearSessionCookies(w)
	httpx.WriteStatus(w, "invalid", httpx.Envelope{
		"reason":   string(reason),
		"redirect": "login",
	})
}
