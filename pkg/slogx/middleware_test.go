package slogx_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodewatchers/nodewatch/pkg/slogx"
)

func TestHTTPMiddlewareLogsResolvedIP(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	extractor := func(r *http.Request) string {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			return fwd
		}
		return r.RemoteAddr
	}

	handler := slogx.HTTPMiddleware(base, extractor)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/login/slider", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set("X-Request-ID", "req-abc")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "203.0.113.9", line["ip"])
	require.Equal(t, "req-abc", line["req_id"])
	require.EqualValues(t, http.StatusNoContent, line["status"])
}

func TestHTTPMiddlewareMintsRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := slogx.HTTPMiddleware(base, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slogx.FromContext(r.Context())
		require.NotNil(t, logger)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.NotEmpty(t, line["req_id"])

	// No extractor configured, so the raw peer address is what gets logged.
	require.NotEmpty(t, line["ip"])
}
