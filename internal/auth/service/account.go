package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nodewatchers/nodewatch/internal/auth/domain"
	"github.com/nodewatchers/nodewatch/internal/auth/store"
	"github.com/nodewatchers/nodewatch/pkg/jwtx"
)

const (
	// AccountTokenTTL is the account token lifetime, matching the session
	// cookie's seven days.
	AccountTokenTTL = 7 * 24 * time.Hour

	// revokeFallbackTTL covers revoked tokens whose expiry cannot be read.
	revokeFallbackTTL = time.Hour
)

// AccountTokenService issues, validates and revokes the long-lived account
// tokens that represent a signed-in session.
type AccountTokenService struct {
	Store store.Store
	Keys  *Keychain
}

// Issue mints a fresh account token for the user.
func (s *AccountTokenService) Issue(ctx context.Context, user domain.User) (string, error) {
	key, err := s.Keys.Key(ctx, domain.KeyAccount)
	if err != nil {
		return "", err
	}

	claims := jwtx.NewAccountClaims(user.Username, user.ID, user.Admin, AccountTokenTTL, time.Now())
	token, err := jwtx.Sign(claims, key)
	if err != nil {
		return "", fmt.Errorf("sign account token: %w", err)
	}
	return token, nil
}

// Validate runs the full check sequence on an account token: signature,
// expiry, revocation list, payload completeness, then a live cross-check
// against the identity store. The returned Identity reflects the database,
// not the token.
func (s *AccountTokenService) Validate(ctx context.Context, token string) (domain.Identity, error) {
	key, err := s.Keys.Key(ctx, domain.KeyAccount)
	if err != nil {
		return domain.Identity{}, err
	}

	claims, err := jwtx.ParseAccount(token, key)
	if err != nil {
		return domain.Identity{}, err
	}

	revoked, err := s.Store.RevokedTokens().IsRevoked(ctx, token, time.Now())
	if err != nil {
		return domain.Identity{}, jwtx.Invalid(jwtx.ReasonDatabaseError)
	}
	if revoked {
		return domain.Identity{}, jwtx.Invalid(jwtx.ReasonBanned)
	}

	if claims.Subject == "" || claims.UID == "" {
		return domain.Identity{}, jwtx.Invalid(jwtx.ReasonInvalidPayload)
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.UID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Identity{}, jwtx.Invalid(jwtx.ReasonUserMismatch)
	}
	if err != nil {
		return domain.Identity{}, jwtx.Invalid(jwtx.ReasonDatabaseError)
	}

	if user.Username != claims.Subject || user.Admin != claims.IsAdmin() {
		return domain.Identity{}, jwtx.Invalid(jwtx.ReasonUserMismatch)
	}

	return domain.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Admin:    user.Admin,
	}, nil
}

// Revoke puts the token on the revocation list until its natural expiry, or
// one hour from now when the expiry cannot be extracted.
func (s *AccountTokenService) Revoke(ctx context.Context, token string) error {
	now := time.Now()
	expiresAt := now.Add(revokeFallbackTTL)
	if exp, ok := jwtx.PeekExpiry(token); ok {
		expiresAt = time.Unix(exp, 0)
	}
	return s.Store.RevokedTokens().Add(ctx, token, expiresAt)
}
