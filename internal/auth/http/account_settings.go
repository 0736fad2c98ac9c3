package http

import (
	"errors"
	"net/http"

	"github.com/nodewatchers/nodewatch/internal/auth/service"
	"github.com/nodewatchers/nodewatch/pkg/cryptox"
	"github.com/nodewatchers/nodewatch/pkg/httpx"
)

// AccountSettingsHandler serves the self-service account operations. All of
// these run behind the visit-token guard, so the identity in the request
// context is already verified.
type AccountSettingsHandler struct {
	Users *service.UserService
	MFA   *service.MFAService
}

func (h *AccountSettingsHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Current string `json:"current_password"`
		Next    string `json:"new_password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	identity, _ := IdentityFromContext(r.Context())
	if err := h.Users.ChangePassword(r.Context(), identity.UserID, req.Current, req.Next); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			httpx.WriteStatus(w, "invalid_credentials", nil)
			return
		}
		httpx.WriteStatus(w, "invalid_payload", nil)
		return
	}
	httpx.WriteStatus(w, "ok", nil)
}

func (h *AccountSettingsHandler) HandleChangeEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	identity, _ := IdentityFromContext(r.Context())
	if err := h.Users.ChangeEmail(r.Context(), identity.UserID, req.Email); err != nil {
		httpx.WriteStatus(w, "invalid_payload", nil)
		return
	}
	httpx.WriteStatus(w, "ok", nil)
}

func (h *AccountSettingsHandler) HandleMFAEnroll(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	setup, err := h.MFA.GenerateSecret(r.Context(), identity.Username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteStatus(w, "ok", httpx.Envelope{
		"secret": setup.Secret,
		"url":    setup.URL,
	})
}

func (h *AccountSettingsHandler) HandleMFAEnable(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secret string `json:"secret"`
		Code   string `json:"code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Secret == "" || req.Code == "" {
		httpx.WriteStatus(w, "invalid_payload", nil)
		return
	}

	identity, _ := IdentityFromContext(r.Context())
	if err := h.MFA.VerifyAndEnable(r.Context(), identity.Username, req.Secret, req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteStatus(w, "ok", nil)
}

func (h *AccountSettingsHandler) HandleMFADisable(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFromContext(r.Context())

	if err := h.MFA.Disable(r.Context(), identity.Username); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteStatus(w, "ok", nil)
}
