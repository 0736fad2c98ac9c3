package domain

import "time"

// Identity is the authenticated principal a validated token resolves to.
type Identity struct {
	UserID   string
	Username string
	Admin    bool
}

// RevokedToken is a logged-out account token held until its natural expiry.
type RevokedToken struct {
	Token     string
	ExpiresAt time.Time
}

// MFASetup is a freshly generated, not-yet-committed TOTP enrolment. The
// secret is only persisted once the user proves they can produce a code.
type MFASetup struct {
	Secret string // base32, shown to the user once
	URL    string // otpauth:// provisioning URL for QR rendering
}
