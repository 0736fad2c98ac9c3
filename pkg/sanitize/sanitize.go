// Package sanitize holds the shared input validators used by every
// authentication entry point. All validators reject rather than clamp:
// a caller never receives a "repaired" value it did not submit.
package sanitize

import (
	"errors"
	"html"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// MaxInputLength bounds every free-form input to keep hashing and
// storage costs predictable.
const MaxInputLength = 256

var (
	ErrEmpty    = errors.New("sanitize: empty input")
	ErrTooLong  = errors.New("sanitize: input exceeds maximum length")
	ErrNotUTF8  = errors.New("sanitize: input is not valid UTF-8")
	ErrEmail    = errors.New("sanitize: invalid email address")
	ErrPassword = errors.New("sanitize: password does not meet requirements")
	ErrOTPCode  = errors.New("sanitize: code must be six digits")
)

// Common trims surrounding whitespace, enforces the length bound and
// HTML-escapes the result so a stored value can never carry markup back
// into the console UI.
func Common(s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", ErrNotUTF8
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmpty
	}
	if utf8.RuneCountInString(s) > MaxInputLength {
		return "", ErrTooLong
	}
	return html.EscapeString(s), nil
}

// Email validates an address on top of the Common rules. The returned
// value is the escaped input, not the parsed address.
func Email(s string) (string, error) {
	out, err := Common(s)
	if err != nil {
		return "", err
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return "", ErrEmail
	}
	return out, nil
}

// Password enforces the account password policy: 6 to 256 characters
// with at least one letter and one digit. The password itself is
// returned unescaped since it is only ever fed to the hasher.
func Password(s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", ErrNotUTF8
	}
	n := utf8.RuneCountInString(s)
	if n < 6 || n > MaxInputLength {
		return "", ErrPassword
	}
	var hasLetter, hasDigit bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return "", ErrPassword
	}
	return s, nil
}

// OTPCode accepts exactly six ASCII digits, the shape of every TOTP
// code this service verifies.
func OTPCode(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) != 6 {
		return "", ErrOTPCode
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", ErrOTPCode
		}
	}
	return s, nil
}
