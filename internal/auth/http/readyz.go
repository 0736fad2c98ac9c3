package http

import (
	"net/http"
	"time"

	"github.com/nodewatchers/nodewatch/internal/auth/store"
	"github.com/nodewatchers/nodewatch/pkg/httpx"
)

// ReadyzHandler is the readiness probe; it verifies the database is
// reachable before reporting ready.
func ReadyzHandler(startTime time.Time, version string, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		db := "ok"

		if err := st.Ping(r.Context()); err != nil {
			db = "error: " + err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, httpx.Envelope{
			"status":   status,
			"uptime":   time.Since(startTime).String(),
			"version":  version,
			"database": db,
		})
	}
}
