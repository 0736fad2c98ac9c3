package service

import (
	"context"
	"fmt"
	"time"

	"github.com/nodewatchers/nodewatch/internal/auth/domain"
	"github.com/nodewatchers/nodewatch/pkg/jwtx"
)

// VisitTokenTTL is the visit token lifetime. Short on purpose; clients are
// expected to refresh from their account token.
const VisitTokenTTL = 5 * time.Minute

// VisitTokenService mints the short-lived, IP-bound tokens the API surface
// actually accepts. A visit token can only be derived from a valid account
// token and inherits its identity.
type VisitTokenService struct {
	Accounts *AccountTokenService
	Keys     *Keychain
}

// Issue exchanges a valid account token for a visit token pinned to ip.
func (s *VisitTokenService) Issue(ctx context.Context, accountToken, ip string) (string, error) {
	identity, err := s.Accounts.Validate(ctx, accountToken)
	if err != nil {
		return "", err
	}

	key, err := s.Keys.Key(ctx, domain.KeyVisit)
	if err != nil {
		return "", err
	}

	claims := jwtx.NewVisitClaims(identity.Username, identity.UserID, identity.Admin, ip, VisitTokenTTL, time.Now())
	token, err := jwtx.Sign(claims, key)
	if err != nil {
		return "", fmt.Errorf("sign visit token: %w", err)
	}
	return token, nil
}

// Validate checks a visit token presented from ip.
func (s *VisitTokenService) Validate(ctx context.Context, token, ip string) (domain.Identity, error) {
	key, err := s.Keys.Key(ctx, domain.KeyVisit)
	if err != nil {
		return domain.Identity{}, err
	}

	claims, err := jwtx.ParseVisit(token, key)
	if err != nil {
		return domain.Identity{}, err
	}

	if claims.Subject == "" || claims.UID == "" {
		return domain.Identity{}, jwtx.Invalid(jwtx.ReasonInvalidPayload)
	}
	if claims.IP != ip {
		return domain.Identity{}, jwtx.Invalid(jwtx.ReasonIPMismatch)
	}

	return domain.Identity{
		UserID:   claims.UID,
		Username: claims.Subject,
		Admin:    claims.IsAdmin(),
	}, nil
}
