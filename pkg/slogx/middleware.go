package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/nodewatchers/nodewatch/pkg/idx"
)

// HTTPMiddleware logs requests and attaches a contextual logger into request
// context. clientIP resolves the caller address for the log line; when nil the
// raw RemoteAddr is used instead.
func HTTPMiddleware(base *slog.Logger, clientIP func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			// Honour an upstream X-Request-ID, mint one otherwise
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = idx.NewString()
			}

			ip := r.RemoteAddr
			if clientIP != nil {
				ip = clientIP(r)
			}

			logger := base.With(
				"req_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"ip", ip,
			)

			// Attach to context for downstream use
			ctx := WithContext(r.Context(), logger)
			r = r.WithContext(ctx)

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Milliseconds()
			logger.Info("http_request",
				"status", rw.status,
				"duration_ms", duration,
				"user_agent", r.UserAgent(),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter

	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
