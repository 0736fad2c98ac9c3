package http

import (
	"net/http"
	"time"
)

const (
	// AccountCookie carries the long-lived session token. HttpOnly so page
	// scripts never see it.
	AccountCookie = "account_jwt"

	// UsernameCookie is display-only and intentionally script-readable.
	UsernameCookie = "username"

	sessionCookieTTL = 7 * 24 * time.Hour
)

func setSessionCookies(w http.ResponseWriter, r *http.Request, token, username string) {
	secure := r.TLS != nil

	http.SetCookie(w, &http.Cookie{
		Name:     AccountCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     UsernameCookie,
		Value:    username,
		Path:     "/",
		MaxAge:   int(sessionCookieTTL.Seconds()),
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{AccountCookie, UsernameCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:   name,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}
}

func accountCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(AccountCookie)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
