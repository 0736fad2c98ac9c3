package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nodewatchers/nodewatch/internal/auth/domain"
	"github.com/nodewatchers/nodewatch/internal/auth/store"
	"github.com/nodewatchers/nodewatch/pkg/cryptox"
	"github.com/nodewatchers/nodewatch/pkg/jwtx"
)

// Rotation schedule per key name. Rotating a key invalidates tokens signed
// with the previous secret; account tokens force a re-login once a month,
// scene and visit tokens are short enough that a daily cut-over is harmless.
var keyMaxAge = map[string]time.Duration{
	domain.KeyAccount: 30 * 24 * time.Hour,
	domain.KeyVisit:   24 * time.Hour,
	domain.KeyScene:   24 * time.Hour,
}

// Keychain hands out the named HMAC signing keys, generating and rotating
// them in the database as needed. Decoded keys are cached in memory until
// their rotation deadline.
type Keychain struct {
	Store store.Store

	mu    sync.Mutex
	cache map[string]cachedKey
}

type cachedKey struct {
	raw       []byte
	rotatedAt time.Time
}

func NewKeychain(st store.Store) *Keychain {
	return &Keychain{
		Store: st,
		cache: make(map[string]cachedKey),
	}
}

// Key returns the current raw secret for the named key, rotating it first
// if it is past its schedule.
func (k *Keychain) Key(ctx context.Context, name string) ([]byte, error) {
	maxAge, ok := keyMaxAge[name]
	if !ok {
		return nil, fmt.Errorf("keychain: unknown key %q", name)
	}

	now := time.Now()

	k.mu.Lock()
	defer k.mu.Unlock()

	if c, ok := k.cache[name]; ok && now.Sub(c.rotatedAt) < maxAge {
		return c.raw, nil
	}

	row, err := k.Store.SigningKeys().Get(ctx, name)
	switch {
	case errors.Is(err, store.ErrNotFound) || (err == nil && row.Stale(maxAge, now)):
		row, err = k.rotate(ctx, name, now)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("keychain: load %q: %w", name, err)
	}

	raw, err := jwtx.DecodeKey(row.Secret)
	if err != nil {
		return nil, fmt.Errorf("keychain: decode %q: %w", name, err)
	}

	k.cache[name] = cachedKey{raw: raw, rotatedAt: row.RotatedAt}
	return raw, nil
}

func (k *Keychain) rotate(ctx context.Context, name string, now time.Time) (domain.SigningKey, error) {
	secret, err := cryptox.GenerateKey(cryptox.KeySize256)
	if err != nil {
		return domain.SigningKey{}, fmt.Errorf("keychain: generate %q: %w", name, err)
	}

	row := domain.SigningKey{Name: name, Secret: secret, RotatedAt: now.UTC()}
	if err := k.Store.SigningKeys().Put(ctx, row); err != nil {
		return domain.SigningKey{}, fmt.Errorf("keychain: store %q: %w", name, err)
	}
	return row, nil
}
