package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/nodewatchers/nodewatch/internal/auth/service"
	"github.com/nodewatchers/nodewatch/internal/auth/store"
	"github.com/nodewatchers/nodewatch/pkg/httpx"
	"github.com/nodewatchers/nodewatch/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store        store.Store
	LoginService *service.LoginService
	Accounts     *service.AccountTokenService
	Visits       *service.VisitTokenService
	MFAService   *service.MFAService
	UserService  *service.UserService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger, httpx.ClientIP),
		httpx.SecurityHeaders(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerLogin()
	r.registerSession()
	r.registerAccountSettings()
	r.registerAdmin()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerLogin() {
	login := &LoginHandler{Login: r.LoginService}

	// The whole login pipeline carries the strict outer limit; the DB-backed
	// scene counter behind it is the authoritative control.
	r.Mux.Handle("POST /v1/login/slider",
		httpx.Chain(http.HandlerFunc(login.HandleGetSlider),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/login/slider/verify",
		httpx.Chain(http.HandlerFunc(login.HandleVerifySlider),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/login/account",
		httpx.Chain(http.HandlerFunc(login.HandleVerifyAccount),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/login/mfa",
		httpx.Chain(http.HandlerFunc(login.HandleVerifyMFA),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Wrong-method hits on the login surface answer with the JSON 405 envelope
	r.Mux.Handle("/v1/login/", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteMethodNotAllowed(w)
	}))
}

func (r *Router) registerSession() {
	session := &SessionHandler{Accounts: r.Accounts, Visits: r.Visits}

	r.Mux.Handle("POST /v1/session",
		httpx.Chain(http.HandlerFunc(session.HandleSession),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/logout",
		httpx.Chain(http.HandlerFunc(session.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/token/visit",
		httpx.Chain(http.HandlerFunc(session.HandleMintVisit),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAccountSettings() {
	settings := &AccountSettingsHandler{
		Users: r.UserService,
		MFA:   r.MFAService,
	}
	guard := &VisitGuard{Visits: r.Visits}

	r.Mux.Handle("POST /v1/account/password",
		httpx.Chain(guard.Require(settings.HandleChangePassword),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/account/email",
		httpx.Chain(guard.Require(settings.HandleChangeEmail),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/account/mfa/enroll",
		httpx.Chain(guard.Require(settings.HandleMFAEnroll),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/account/mfa/enable",
		httpx.Chain(guard.Require(settings.HandleMFAEnable),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/account/mfa/disable",
		httpx.Chain(guard.Require(settings.HandleMFADisable),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	guard := &VisitGuard{Visits: r.Visits}
	admin := &AdminHandler{Store: r.store, StartTime: r.startTime, Version: r.buildVersion}

	r.Mux.Handle("GET /v1/admin/status",
		httpx.Chain(guard.RequireAdmin(admin.HandleStatus),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
