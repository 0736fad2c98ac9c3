package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Envelope is the JSON body convention shared by every endpoint: a status
// code string plus whatever extra fields the endpoint adds.
type Envelope map[string]any

// WriteJSON writes a JSON response with the given HTTP status code. It sets
// Content-Type and no-store caching headers; token-bearing responses must
// never be cached.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteStatus writes the envelope {"status": status} merged with extra
// key/value pairs, always with HTTP 200; the envelope status carries the
// outcome.
func WriteStatus(w http.ResponseWriter, status string, extra Envelope) {
	body := Envelope{"status": status}
	for k, v := range extra {
		body[k] = v
	}
	WriteJSON(w, http.StatusOK, body)
}

// WriteMethodNotAllowed answers a wrong-method request with HTTP 405 and
// the JSON envelope the clients expect.
func WriteMethodNotAllowed(w http.ResponseWriter) {
	WriteJSON(w, http.StatusMethodNotAllowed, Envelope{"status": "method_not_allowed"})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// RequireMethod guards a handler to a single HTTP method, answering
// anything else with the 405 envelope.
func RequireMethod(method string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			WriteMethodNotAllowed(w)
			return
		}
		h(w, r)
	})
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header,
// returning ok=false when the header is missing or malformed.
func BearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	authz := r.Header.Get("Authorization")
	if len(authz) <= len(prefix) || !strings.EqualFold(authz[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(authz[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}
