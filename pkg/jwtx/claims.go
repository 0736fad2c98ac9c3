// Package jwtx wraps golang-jwt with the three claim shapes this service
// issues: long-lived account tokens, short-lived IP-bound visit tokens and
// single-purpose scene tokens. All are HS256 signed envelopes; validation
// failures carry a machine-readable reason so callers can react differently
// to an expired token than to a forged one.
package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccountClaims is the payload of the 7-day account token. The subject is
// the username; uid and adm are cross-checked against the identity store at
// validation time so a stale or forged token cannot outlive a rename or a
// role change.
type AccountClaims struct {
	jwt.RegisteredClaims

	UID   string `json:"uid"`
	Admin int    `json:"adm"`
}

// VisitClaims is the payload of the 5-minute visit token derived from an
// account token. IP pins the token to the address it was minted for.
type VisitClaims struct {
	jwt.RegisteredClaims

	UID   string `json:"uid"`
	Admin int    `json:"adm"`
	IP    string `json:"ip"`
}

// SceneClaims gates one step of the login flow. Scene is one of "robots",
// "account" or "mfa"; Username is only present on mfa-scene tokens, carrying
// the identity that already passed the password check.
type SceneClaims struct {
	jwt.RegisteredClaims

	IP       string `json:"ip"`
	Scene    string `json:"scene"`
	Username string `json:"username,omitempty"`
}

// NewAccountClaims builds account-token claims for a user.
func NewAccountClaims(username, uid string, admin bool, ttl time.Duration, now time.Time) AccountClaims {
	return AccountClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:   uid,
		Admin: boolToInt(admin),
	}
}

// NewVisitClaims builds visit-token claims bound to ip.
func NewVisitClaims(username, uid string, admin bool, ip string, ttl time.Duration, now time.Time) VisitClaims {
	return VisitClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UID:   uid,
		Admin: boolToInt(admin),
		IP:    ip,
	}
}

// NewSceneClaims builds scene-token claims bound to ip. username may be
// empty for scenes that do not carry an identity.
func NewSceneClaims(ip, scene, username string, ttl time.Duration, now time.Time) SceneClaims {
	return SceneClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		IP:       ip,
		Scene:    scene,
		Username: username,
	}
}

// IsAdmin reports whether the adm claim marks an administrator.
func (c *AccountClaims) IsAdmin() bool { return c.Admin != 0 }

// IsAdmin reports whether the adm claim marks an administrator.
func (c *VisitClaims) IsAdmin() bool { return c.Admin != 0 }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
