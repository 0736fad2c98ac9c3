package httpx_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nodewatchers/nodewatch/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	t.Run("extracts from RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"

		require.Equal(t, "192.168.1.1", httpx.ClientIP(req))
	})

	t.Run("prefers X-Forwarded-For", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Forwarded-For", "203.0.113.1, 192.168.1.1")

		require.Equal(t, "203.0.113.1", httpx.ClientIP(req))
	})

	t.Run("skips unknown entries", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Forwarded-For", "unknown, 203.0.113.7")

		require.Equal(t, "203.0.113.7", httpx.ClientIP(req))
	})

	t.Run("uses X-Real-IP if X-Forwarded-For absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Real-IP", "203.0.113.2")

		require.Equal(t, "203.0.113.2", httpx.ClientIP(req))
	})

	t.Run("garbage collapses to unknown", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "not-an-ip")

		require.Equal(t, httpx.UnknownIP, httpx.ClientIP(req))
	})
}

func TestBearerToken(t *testing.T) {
	t.Run("extracts token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer abc.def.ghi")

		token, ok := httpx.BearerToken(req)
		require.True(t, ok)
		require.Equal(t, "abc.def.ghi", token)
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		_, ok := httpx.BearerToken(req)
		require.False(t, ok)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		_, ok := httpx.BearerToken(req)
		require.False(t, ok)
	})
}

func TestRequireMethod(t *testing.T) {
	h := httpx.RequireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteStatus(w, "ok", nil)
	})

	t.Run("allowed method passes through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong method gets 405 with JSON body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "method_not_allowed", body["status"])
	})
}

func TestRateLimitByIP(t *testing.T) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}
	handler := httpx.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpx.WriteStatus(w, "ok", nil)
		}),
		httpx.RateLimitByIP(cfg),
	)

	req := func(ip string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.RemoteAddr = ip + ":1000"
		return r
	}

	// Two requests fit in the burst, the third does not.
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req("203.0.113.9"))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req("203.0.113.9"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different IP is unaffected.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req("203.0.113.10"))
	require.Equal(t, http.StatusOK, rec.Code)
}
