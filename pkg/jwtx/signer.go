package jwtx

import (
	"encoding/base64"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// DecodeKey turns a stored base64 signing key into raw HMAC key material.
func DecodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, errors.New("jwtx: empty signing key")
	}
	return key, nil
}

// Sign produces a compact HS256 token over claims.
func Sign(claims jwt.Claims, key []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// ParseAccount parses and verifies an account token.
func ParseAccount(token string, key []byte) (*AccountClaims, error) {
	claims := &AccountClaims{}
	if err := parseInto(token, claims, key); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseVisit parses and verifies a visit token.
func ParseVisit(token string, key []byte) (*VisitClaims, error) {
	claims := &VisitClaims{}
	if err := parseInto(token, claims, key); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseScene parses and verifies a scene token.
func ParseScene(token string, key []byte) (*SceneClaims, error) {
	claims := &SceneClaims{}
	if err := parseInto(token, claims, key); err != nil {
		return nil, err
	}
	return claims, nil
}

// PeekExpiry extracts the exp claim without verifying the signature. The
// revocation list uses it to give a banned token string its own TTL; a
// token too mangled to parse reports ok=false.
func PeekExpiry(token string) (exp int64, ok bool) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return 0, false
	}
	if claims.ExpiresAt == nil {
		return 0, false
	}
	return claims.ExpiresAt.Unix(), true
}

// parseInto verifies the token against key, filling claims. Rejections map
// onto the reason taxonomy: malformed input is "format", a bad MAC is
// "signature", and only a token that passed both can be "expired".
func parseInto(token string, claims jwt.Claims, key []byte) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return key, nil
	})
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return Invalid(ReasonFormat)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Invalid(ReasonSignature)
	case errors.Is(err, jwt.ErrTokenExpired):
		return Invalid(ReasonExpired)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return Invalid(ReasonInvalidPayload)
	default:
		return Invalid(ReasonFormat)
	}
}
