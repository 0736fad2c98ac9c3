package http

import (
	"context"
	"net/http"

	"github.com/nodewatchers/nodewatch/internal/auth/domain"
	"github.com/nodewatchers/nodewatch/internal/auth/service"
	"github.com/nodewatchers/nodewatch/pkg/httpx"
)

type identityKey struct{}

// IdentityFromContext returns the identity a guard attached to the request.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok
}

// VisitGuard protects endpoints behind a bearer visit token. Rejections
// carry action "refresh_token" so clients know to mint a fresh visit token
// from their account cookie rather than redoing the whole login.
type VisitGuard struct {
	Visits *service.VisitTokenService
}

// Require wraps a handler so it only runs with a valid visit token from the
// caller's IP. The resolved identity rides in the request context.
func (g *VisitGuard) Require(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := httpx.BearerToken(r)
		if !ok {
			g.reject(w)
			return
		}

		identity, err := g.Visits.Validate(r.Context(), token, httpx.ClientIP(r))
		if err != nil {
			g.reject(w)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin is Require plus the admin flag.
func (g *VisitGuard) RequireAdmin(next http.HandlerFunc) http.Handler {
	return g.Require(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := IdentityFromContext(r.Context())
		if !identity.Admin {
			httpx.WriteJSON(w, http.StatusForbidden, httpx.Envelope{"status": "forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *VisitGuard) reject(w http.ResponseWriter) {
	httpx.WriteJSON(w, http.StatusUnauthorized, httpx.Envelope{
		"status": "unauthorized",
		"action": "refresh_token",
	})
}
