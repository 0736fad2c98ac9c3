package domain

import "time"

// Ban is a temporary per-IP lockout. Expired rows linger in storage until
// a read path or housekeeping prunes them.
type Ban struct {
	IP          string
	BannedUntil time.Time
}

// Active reports whether the ban still applies at the given instant.
func (b *Ban) Active(now time.Time) bool {
	return now.Before(b.BannedUntil)
}
