package httpx

import (
	"net"
	"net/http"
	"strings"
)

// UnknownIP is returned when no header or peer address yields a parseable
// IP. It still participates in rate limiting and bans, so spoofed garbage
// collapses into a single bucket instead of bypassing the counters.
const UnknownIP = "0.0.0.0"

// ClientIP resolves the caller's address behind common reverse proxies:
// first non-"unknown" entry of X-Forwarded-For, then X-Real-IP, then the
// connection's remote address. Anything that does not parse as an IP
// resolves to UnknownIP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			part = strings.TrimSpace(part)
			if part != "" && !strings.EqualFold(part, "unknown") {
				return canonicalIP(part)
			}
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return canonicalIP(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return canonicalIP(host)
}

func canonicalIP(s string) string {
	ip := net.ParseIP(s)
	if ip == nil {
		return UnknownIP
	}
	return ip.String()
}
