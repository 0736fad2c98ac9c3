package jwtx

import (
	"errors"
	"fmt"
)

// Reason is the machine-readable cause of a token rejection. The HTTP layer
// surfaces these verbatim so clients can auto-refresh on "expired" but hard
// redirect to login on "signature".
type Reason string

const (
	ReasonFormat         Reason = "format"
	ReasonSignature      Reason = "signature"
	ReasonExpired        Reason = "expired"
	ReasonIP             Reason = "ip"
	ReasonIPMismatch     Reason = "ip_mismatch"
	ReasonScene          Reason = "scene"
	ReasonBanned         Reason = "banned"
	ReasonInvalidPayload Reason = "invalid_payload"
	ReasonUserMismatch   Reason = "user_mismatch"
	ReasonDatabaseError  Reason = "database_error"
)

// InvalidError reports a rejected token together with its reason.
type InvalidError struct {
	Reason Reason
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("jwtx: invalid token (%s)", e.Reason)
}

// Invalid is a convenience constructor for InvalidError.
func Invalid(reason Reason) *InvalidError {
	return &InvalidError{Reason: reason}
}

// ReasonOf extracts the reason from err, or "" when err is not an
// InvalidError.
func ReasonOf(err error) Reason {
	var ie *InvalidError
	if errors.As(err, &ie) {
		return ie.Reason
	}
	return ""
}
