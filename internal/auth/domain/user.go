package domain

import "time"

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string     // argon2 encoded
	Admin        bool       // unlocks the guarded admin surface
	MFAEnabled   *time.Time // timestamp when MFA was enabled (nullable)
	MFASecret    *string    // encrypted TOTP secret (nullable)
	LastLoginIP  string
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasMFA reports whether MFA is fully enabled: both the flag and the stored
// secret must be present.
func (u *User) HasMFA() bool {
	return u.MFAEnabled != nil && u.MFASecret != nil && *u.MFASecret != ""
}
