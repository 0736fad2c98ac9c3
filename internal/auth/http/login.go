package http

import (
	"errors"
	"net/http"

	"github.com/nodewatchers/nodewatch/internal/auth/service"
	"github.com/nodewatchers/nodewatch/pkg/httpx"
)

// LoginHandler serves the four steps of the login pipeline. Every response
// uses the {"status": ...} envelope; a completed login additionally sets the
// session cookies.
type LoginHandler struct {
	Login *service.LoginService
}

// HandleGetSlider hands out a robots scene token and a slider challenge.
func (h *LoginHandler) HandleGetSlider(w http.ResponseWriter, r *http.Request) {
	ip := httpx.ClientIP(r)

	token, challenge, err := h.Login.GetSlider(r.Context(), ip)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// Only the decoy display band goes out; the target stays server-side.
	httpx.WriteStatus(w, "ok", httpx.Envelope{
		"scene_token": token,
		"show_min":    challenge.ShowMin,
		"show_max":    challenge.ShowMax,
	})
}

// HandleVerifySlider checks the submitted slider position and, on success,
// returns the account scene token for the credential step.
func (h *LoginHandler) HandleVerifySlider(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SceneToken string `json:"scene_token"`
		Position   *int   `json:"position"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SceneToken == "" || req.Position == nil {
		httpx.WriteStatus(w, "invalid_payload", nil)
		return
	}

	ip := httpx.ClientIP(r)
	accountToken, err := h.Login.VerifySlider(r.Context(), ip, req.SceneToken, *req.Position)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteStatus(w, "ok", httpx.Envelope{"scene_token": accountToken})
}

// HandleVerifyAccount takes the encrypted credential envelope. Depending on
// the account it either completes the login or asks for an MFA code.
func (h *LoginHandler) HandleVerifyAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Payload string `json:"payload"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Payload == "" {
		httpx.WriteStatus(w, "invalid_payload", nil)
		return
	}

	ip := httpx.ClientIP(r)
	result, err := h.Login.VerifyAccountSecure(r.Context(), ip, req.Payload)
	h.finishLoginStep(w, r, result, err)
}

// HandleVerifyMFA finishes a login that needed a TOTP code.
func (h *LoginHandler) HandleVerifyMFA(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SceneToken string `json:"scene_token"`
		Code       string `json:"code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SceneToken == "" || req.Code == "" {
		httpx.WriteStatus(w, "invalid_payload", nil)
		return
	}

	ip := httpx.ClientIP(r)
	result, err := h.Login.VerifyMFA(r.Context(), ip, req.SceneToken, req.Code)
	h.finishLoginStep(w, r, result, err)
}

func (h *LoginHandler) finishLoginStep(w http.ResponseWriter, r *http.Request, result service.LoginResult, err error) {
	if errors.Is(err, service.ErrInvalidCredentials) {
		httpx.WriteStatus(w, "invalid_credentials", httpx.Envelope{
			"attempts_left": result.AttemptsLeft,
		})
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if result.MFARequired {
		httpx.WriteStatus(w, "mfa_required", httpx.Envelope{"scene_token": result.MFAToken})
		return
	}

	setSessionCookies(w, r, result.AccountToken, result.Username)
	httpx.WriteStatus(w, "ok", httpx.Envelope{
		"username": result.Username,
		"admin":    result.Admin,
	})
}
