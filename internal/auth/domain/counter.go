package domain

import "time"

// CounterKind names an independent per-IP rolling counter.
type CounterKind string

const (
	// CounterScene counts scene token operations (issue and validate share
	// one counter).
	CounterScene CounterKind = "scene"

	// CounterLogin counts failed password attempts.
	CounterLogin CounterKind = "login"
)

// RateCounter is one per-IP rolling window counter row.
type RateCounter struct {
	IP          string
	Kind        CounterKind
	Count       int
	WindowStart time.Time
}

// Expired reports whether the counting window has rolled over.
func (c *RateCounter) Expired(window time.Duration, now time.Time) bool {
	return now.Sub(c.WindowStart) > window
}
