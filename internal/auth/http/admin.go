package http

import (
	"net/http"
	"time"

	"github.com/nodewatchers/nodewatch/internal/auth/store"
	"github.com/nodewatchers/nodewatch/pkg/httpx"
)

// AdminHandler serves the admin-only status surface behind the visit-token
// guard plus the admin flag.
type AdminHandler struct {
	Store     store.Store
	StartTime time.Time
	Version   string
}

func (h *AdminHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	db := "ok"
	if err := h.Store.Ping(r.Context()); err != nil {
		db = "error"
	}

	httpx.WriteStatus(w, "ok", httpx.Envelope{
		"uptime":   time.Since(h.StartTime).String(),
		"version":  h.Version,
		"database": db,
	})
}
