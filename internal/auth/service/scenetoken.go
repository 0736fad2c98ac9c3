package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nodewatchers/nodewatch/internal/auth/domain"
	"github.com/nodewatchers/nodewatch/internal/auth/store"
	"github.com/nodewatchers/nodewatch/pkg/jwtx"
	"github.com/nodewatchers/nodewatch/pkg/slogx"
)

const (
	// SceneTokenTTL is how long one scene token stays usable.
	SceneTokenTTL = 5 * time.Minute

	// CounterWindow/CounterLimit shape both per-IP rolling counters. Issuing
	// and validating scene tokens share one counter; the operation that
	// crosses the limit is the one that trips the ban.
	CounterWindow = 10 * time.Minute
	CounterLimit  = 20

	// BanDuration is how long a tripped IP stays locked out.
	BanDuration = 30 * time.Minute
)

var (
	ErrBanned       = errors.New("ip is banned")
	ErrUnknownScene = errors.New("unknown scene")
)

// SceneTokenService issues and validates the short-lived tokens that gate
// each step of the login flow, and runs the per-IP abuse counters that back
// them.
type SceneTokenService struct {
	Store    store.Store
	Keys     *Keychain
	Registry *SceneRegistry
}

// Issue mints a scene token for ip. Unknown scenes are rejected before any
// counter is touched. username travels only on mfa-scene tokens.
func (s *SceneTokenService) Issue(ctx context.Context, ip string, scene domain.Scene, username string) (string, error) {
	if !scene.Valid() {
		return "", ErrUnknownScene
	}

	now := time.Now()
	if err := s.checkBan(ctx, ip, now); err != nil {
		return "", err
	}
	if err := s.bumpSceneCounter(ctx, ip, now); err != nil {
		return "", err
	}

	key, err := s.Keys.Key(ctx, domain.KeyScene)
	if err != nil {
		return "", err
	}

	claims := jwtx.NewSceneClaims(ip, scene.String(), username, SceneTokenTTL, now)
	token, err := jwtx.Sign(claims, key)
	if err != nil {
		return "", fmt.Errorf("sign scene token: %w", err)
	}

	s.Registry.Put(ip, scene, token, now.Add(SceneTokenTTL))
	return token, nil
}

// Validate checks a scene token presented from ip for the expected scene.
// Validation counts against the same rolling counter as issuing; a merely
// invalid token never bans on its own.
func (s *SceneTokenService) Validate(ctx context.Context, ip, token string, scene domain.Scene) (*jwtx.SceneClaims, error) {
	now := time.Now()
	if err := s.checkBan(ctx, ip, now); err != nil {
		return nil, err
	}
	if err := s.bumpSceneCounter(ctx, ip, now); err != nil {
		return nil, err
	}

	key, err := s.Keys.Key(ctx, domain.KeyScene)
	if err != nil {
		return nil, err
	}

	claims, err := jwtx.ParseScene(token, key)
	if err != nil {
		return nil, err
	}

	if claims.IP != ip {
		return nil, jwtx.Invalid(jwtx.ReasonIP)
	}
	if claims.Scene == "" || claims.Scene != scene.String() {
		return nil, jwtx.Invalid(jwtx.ReasonScene)
	}
	return claims, nil
}

// FailedLoginAttempt bumps the per-IP failed-login counter and returns how
// many attempts remain before a ban. Crossing the limit bans immediately.
func (s *SceneTokenService) FailedLoginAttempt(ctx context.Context, ip string) (remaining int, err error) {
	now := time.Now()

	var count int
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		count, err = tx.Counters().Bump(ctx, ip, domain.CounterLogin, CounterWindow, now)
		if err != nil {
			return err
		}
		if count > CounterLimit {
			return s.tripBan(ctx, tx, ip, domain.CounterLogin, now)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if count > CounterLimit {
		return 0, ErrBanned
	}
	return CounterLimit - count, nil
}

// CheckBan reports ErrBanned when ip is currently locked out. Steps that do
// not themselves run a counter use it to honour bans before doing any work.
func (s *SceneTokenService) CheckBan(ctx context.Context, ip string) error {
	return s.checkBan(ctx, ip, time.Now())
}

// ClearIP resets both counters for an IP after a successful login.
func (s *SceneTokenService) ClearIP(ctx context.Context, ip string) error {
	if err := s.Store.Counters().Delete(ctx, ip, domain.CounterScene); err != nil {
		return err
	}
	return s.Store.Counters().Delete(ctx, ip, domain.CounterLogin)
}

// checkBan short-circuits banned IPs and lazily prunes lapsed bans.
func (s *SceneTokenService) checkBan(ctx context.Context, ip string, now time.Time) error {
	ban, err := s.Store.Bans().Get(ctx, ip)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if ban.Active(now) {
		return ErrBanned
	}

	if err := s.Store.Bans().Delete(ctx, ip); err != nil {
		return err
	}
	return nil
}

// bumpSceneCounter increments the shared scene counter, banning the IP when
// the operation crosses the limit.
func (s *SceneTokenService) bumpSceneCounter(ctx context.Context, ip string, now time.Time) error {
	var tripped bool
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		count, err := tx.Counters().Bump(ctx, ip, domain.CounterScene, CounterWindow, now)
		if err != nil {
			return err
		}
		if count > CounterLimit {
			tripped = true
			return s.tripBan(ctx, tx, ip, domain.CounterScene, now)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if tripped {
		return ErrBanned
	}
	return nil
}

// tripBan bans the IP and drops the counter that tripped, so the lockout
// restarts clean once the ban lapses.
func (s *SceneTokenService) tripBan(ctx context.Context, tx store.Tx, ip string, kind domain.CounterKind, now time.Time) error {
	slogx.FromContext(ctx).Warn("rate limit tripped, banning ip",
		slog.String("ip", ip),
		slog.String("counter", string(kind)),
	)

	if err := tx.Bans().Upsert(ctx, ip, now.Add(BanDuration)); err != nil {
		return err
	}
	return tx.Counters().Delete(ctx, ip, kind)
}
