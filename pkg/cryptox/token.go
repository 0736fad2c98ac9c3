package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Key size constants (in bytes before encoding).
const (
	// KeySize256 provides 256 bits of entropy (43 chars base64).
	KeySize256 = 32
)

// GenerateKey creates a cryptographically secure random key of the specified
// byte length, returned base64-encoded. Used as HMAC signing-key material for
// the token issuers.
func GenerateKey(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("key size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random key: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf), nil
}

// MustGenerateKey is like GenerateKey but panics on error.
// Use this only during initialization where failure is unrecoverable.
func MustGenerateKey(size int) string {
	key, err := GenerateKey(size)
	if err != nil {
		panic(fmt.Sprintf("cryptox: failed to generate key: %v", err))
	}
	return key
}
