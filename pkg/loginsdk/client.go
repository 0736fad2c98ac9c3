package loginsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
)

// StatusError is returned when the server answers with a non-ok envelope
// status; the Status field carries the machine-readable outcome.
type StatusError struct {
	Status   string
	Envelope map[string]any
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("loginsdk: server returned status %q", e.Status)
}

// Client drives the login pipeline against a running server. The cookie jar
// keeps the session cookies across calls, mirroring a browser.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient builds a client with its own cookie jar.
func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Jar: jar},
	}, nil
}

// SliderChallenge is the slider step response. The server only exposes the
// decoy display band; the true target never crosses the wire.
type SliderChallenge struct {
	SceneToken string `json:"scene_token"`
	ShowMin    int    `json:"show_min"`
	ShowMax    int    `json:"show_max"`
}

// GetSlider fetches a fresh slider challenge.
func (c *Client) GetSlider(ctx context.Context) (SliderChallenge, error) {
	var out SliderChallenge
	if err := c.post(ctx, "/v1/login/slider", nil, &out); err != nil {
		return SliderChallenge{}, err
	}
	return out, nil
}

// VerifySlider submits a slider position and returns the account scene
// token for the credential step.
func (c *Client) VerifySlider(ctx context.Context, sceneToken string, position int) (string, error) {
	req := map[string]any{"scene_token": sceneToken, "position": position}
	var out struct {
		SceneToken string `json:"scene_token"`
	}
	if err := c.post(ctx, "/v1/login/slider/verify", req, &out); err != nil {
		return "", err
	}
	return out.SceneToken, nil
}

// LoginOutcome is the result of the credential or MFA step.
type LoginOutcome struct {
	MFARequired bool
	MFAToken    string
	Username    string
	Admin       bool
}

// SubmitCredentials seals and submits the username/password for the account
// step. The scene token must be the one VerifySlider returned.
func (c *Client) SubmitCredentials(ctx context.Context, sceneToken, username, password string) (LoginOutcome, error) {
	payload, err := SealCredentials(username, password, sceneToken)
	if err != nil {
		return LoginOutcome{}, err
	}

	var out struct {
		SceneToken string `json:"scene_token"`
		Username   string `json:"username"`
		Admin      bool   `json:"admin"`
	}
	err = c.post(ctx, "/v1/login/account", map[string]any{"payload": payload}, &out)

	var status *StatusError
	if errors.As(err, &status) && status.Status == "mfa_required" {
		token, _ := status.Envelope["scene_token"].(string)
		return LoginOutcome{MFARequired: true, MFAToken: token}, nil
	}
	if err != nil {
		return LoginOutcome{}, err
	}
	return LoginOutcome{Username: out.Username, Admin: out.Admin}, nil
}

// SubmitMFA finishes a login that asked for a TOTP code.
func (c *Client) SubmitMFA(ctx context.Context, mfaToken, code string) (LoginOutcome, error) {
	req := map[string]any{"scene_token": mfaToken, "code": code}
	var out struct {
		Username string `json:"username"`
		Admin    bool   `json:"admin"`
	}
	if err := c.post(ctx, "/v1/login/mfa", req, &out); err != nil {
		return LoginOutcome{}, err
	}
	return LoginOutcome{Username: out.Username, Admin: out.Admin}, nil
}

// Session probes the current session cookie.
func (c *Client) Session(ctx context.Context) (string, bool, error) {
	var out struct {
		Username string `json:"username"`
		Admin    bool   `json:"admin"`
	}
	if err := c.post(ctx, "/v1/session", nil, &out); err != nil {
		return "", false, err
	}
	return out.Username, out.Admin, nil
}

// MintVisit exchanges the session cookie for a bearer visit token.
func (c *Client) MintVisit(ctx context.Context) (string, error) {
	var out struct {
		VisitToken string `json:"visit_token"`
	}
	if err := c.post(ctx, "/v1/token/visit", nil, &out); err != nil {
		return "", err
	}
	return out.VisitToken, nil
}

// Logout revokes the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/v1/logout", nil, nil)
}

// post sends a JSON request and decodes the envelope. A non-ok status comes
// back as a *StatusError with the whole envelope attached.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("loginsdk: decode response: %w", err)
	}

	status, _ := envelope["status"].(string)
	if status != "ok" {
		return &StatusError{Status: status, Envelope: envelope}
	}

	if out != nil {
		raw, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, out)
	}
	return nil
}
