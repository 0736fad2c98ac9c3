package domain

import "time"

// Signing key names. Each token kind gets its own independently rotated
// HMAC key.
const (
	KeyAccount = "account"
	KeyVisit   = "visit"
	KeyScene   = "scene"
)

// SigningKey is one named HS256 key row. Rotation replaces the secret in
// place; outstanding tokens signed with the old secret become invalid, which
// is the accepted trade-off for these short-lived (or re-loginable) tokens.
type SigningKey struct {
	Name      string
	Secret    string // base64, 256-bit
	RotatedAt time.Time
}

// Stale reports whether the key is due for rotation.
func (k *SigningKey) Stale(maxAge time.Duration, now time.Time) bool {
	return now.Sub(k.RotatedAt) >= maxAge
}
