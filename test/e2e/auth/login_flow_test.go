package auth_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/nodewatchers/nodewatch/pkg/loginsdk"
	"github.com/stretchr/testify/require"
)

func TestLoginFlow(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "alice", "s3cret99", false)

	c := h.newClient(t)
	ctx := context.Background()

	out := h.loginAs(t, c, "alice", "s3cret99")
	require.False(t, out.MFARequired)
	require.Equal(t, "alice", out.Username)
	require.False(t, out.Admin)

	t.Run("session cookies were set", func(t *testing.T) {
		base, err := url.Parse(h.server.URL)
		require.NoError(t, err)

		names := map[string]bool{}
		for _, cookie := range c.HTTP.Jar.Cookies(base) {
			names[cookie.Name] = true
		}
		require.True(t, names["account_jwt"])
		require.True(t, names["username"])
	})

	t.Run("session probe recognises the cookie", func(t *testing.T) {
		username, admin, err := c.Session(ctx)
		require.NoError(t, err)
		require.Equal(t, "alice", username)
		require.False(t, admin)
	})

	t.Run("visit tokens mint from the cookie", func(t *testing.T) {
		token, err := c.MintVisit(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, token)
	})

	t.Run("logout kills the session", func(t *testing.T) {
		require.NoError(t, c.Logout(ctx))

		_, _, err := c.Session(ctx)
		var status *loginsdk.StatusError
		require.ErrorAs(t, err, &status)
		require.Equal(t, "invalid", status.Status)
		require.Equal(t, "login", status.Envelope["redirect"])
	})
}

func TestLoginWrongPassword(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "bob", "s3cret99", false)

	c := h.newClient(t)
	ctx := context.Background()

	challenge, err := c.GetSlider(ctx)
	require.NoError(t, err)
	sceneToken, err := c.VerifySlider(ctx, challenge.SceneToken, h.sliderTarget(t, challenge.SceneToken))
	require.NoError(t, err)

	_, err = c.SubmitCredentials(ctx, sceneToken, "bob", "wrong")
	var status *loginsdk.StatusError
	require.ErrorAs(t, err, &status)
	require.Equal(t, "invalid_credentials", status.Status)
	require.EqualValues(t, 19, status.Envelope["attempts_left"])
}

func TestLoginBadSliderPosition(t *testing.T) {
	h := newHarness(t)
	c := h.newClient(t)
	ctx := context.Background()

	challenge, err := c.GetSlider(ctx)
	require.NoError(t, err)
	target := h.sliderTarget(t, challenge.SceneToken)

	_, err = c.VerifySlider(ctx, challenge.SceneToken, target+21)
	var status *loginsdk.StatusError
	require.ErrorAs(t, err, &status)
	require.Equal(t, "mismatch", status.Status)

	// The challenge was burned on the miss; the right answer is now useless.
	_, err = c.VerifySlider(ctx, challenge.SceneToken, target)
	require.ErrorAs(t, err, &status)
	require.Equal(t, "expired", status.Status)
}

func TestSliderResponseHidesTheTarget(t *testing.T) {
	h := newHarness(t)
	c := h.newClient(t)

	code, body := h.doJSON(t, c, http.MethodPost, "/v1/login/slider", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body["status"])

	// The client gets the decoy band and nothing that gives the answer away.
	require.Contains(t, body, "show_min")
	require.Contains(t, body, "show_max")
	require.NotContains(t, body, "target")
}

func TestLoginWithMFAFlow(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "carol", "s3cret99", false)
	secret := h.enableMFA(t, "carol")

	c := h.newClient(t)
	ctx := context.Background()

	out := h.loginAs(t, c, "carol", "s3cret99")
	require.True(t, out.MFARequired)
	require.NotEmpty(t, out.MFAToken)

	t.Run("a wrong code is refused", func(t *testing.T) {
		_, err := c.SubmitMFA(ctx, out.MFAToken, "000000")
		var status *loginsdk.StatusError
		require.ErrorAs(t, err, &status)
		require.Equal(t, "invalid_credentials", status.Status)
	})

	t.Run("the right code completes the login", func(t *testing.T) {
		done, err := c.SubmitMFA(ctx, out.MFAToken, totpNow(t, secret))
		require.NoError(t, err)
		require.Equal(t, "carol", done.Username)

		username, _, err := c.Session(ctx)
		require.NoError(t, err)
		require.Equal(t, "carol", username)
	})
}

func TestLoginSurfaceRejectsWrongMethods(t *testing.T) {
	h := newHarness(t)
	c := h.newClient(t)

	code, body := h.doJSON(t, c, http.MethodGet, "/v1/login/slider", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, code)
	require.Equal(t, "method_not_allowed", body["status"])
}

func TestSubmitWithoutSliderIsRefused(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, "dave", "s3cret99", false)

	c := h.newClient(t)

	// Straight to the credential step with a made-up scene token.
	_, err := c.SubmitCredentials(context.Background(), "fabricated-token", "dave", "s3cret99")
	var status *loginsdk.StatusError
	require.ErrorAs(t, err, &status)
	require.Equal(t, "no_scene", status.Status)
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t)
	c := h.newClient(t)

	code, body := h.doJSON(t, c, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body["status"])

	code, body = h.doJSON(t, c, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "ok", body["database"])
}

