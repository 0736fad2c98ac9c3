package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nodewatchers/nodewatch/internal/auth/domain"
	"github.com/nodewatchers/nodewatch/internal/auth/store"
	"github.com/nodewatchers/nodewatch/pkg/cryptox"
)

const (
	// payloadFreshness bounds how far the client timestamp may sit from the
	// server clock, in either direction, before the submission is rejected.
	payloadFreshness = 30 * time.Second

	// NonceRetention is how long seen nonces stay in the ledger. Anything
	// older is stale by the freshness rule anyway.
	NonceRetention = 5 * time.Minute
)

var (
	ErrNoSceneToken  = errors.New("no active account scene token for ip")
	ErrBadEnvelope   = errors.New("login envelope cannot be decrypted")
	ErrMissingFields = errors.New("login payload incomplete")
	ErrStalePayload  = errors.New("login payload too old")
	ErrReplay        = errors.New("login nonce already seen")
)

// LoginPayload is the plaintext inside the encrypted login envelope. The
// timestamp is client-side milliseconds since epoch, as produced by
// Date.now().
type LoginPayload struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Nonce     string `json:"nonce"`
	Timestamp int64  `json:"timestamp"`
}

// LoginBoxService opens the encrypted credential envelope the browser
// submits. The passphrase is the caller's active account-scene token, so
// only a client that just passed the slider can even attempt decryption.
// Each payload carries a nonce and a timestamp; the (ip, nonce) ledger makes
// a captured envelope worthless on replay.
type LoginBoxService struct {
	Store    store.Store
	Registry *SceneRegistry
}

// Open decrypts and vets an encrypted login submission from ip. On success
// the nonce is burned into the ledger.
func (s *LoginBoxService) Open(ctx context.Context, ip, encrypted string) (LoginPayload, error) {
	passphrase, ok := s.Registry.Get(ip, domain.SceneAccount)
	if !ok {
		return LoginPayload{}, ErrNoSceneToken
	}

	plaintext, err := cryptox.OpenEnvelope(encrypted, passphrase)
	if err != nil {
		return LoginPayload{}, ErrBadEnvelope
	}

	var payload LoginPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return LoginPayload{}, ErrMissingFields
	}
	if payload.Username == "" || payload.Password == "" || payload.Nonce == "" {
		return LoginPayload{}, ErrMissingFields
	}

	// Timestamps outside the window either way are refused; a far-future
	// timestamp would otherwise outlive the nonce ledger's retention.
	now := time.Now()
	age := now.UnixMilli() - payload.Timestamp
	if age > payloadFreshness.Milliseconds() || age < -payloadFreshness.Milliseconds() {
		return LoginPayload{}, ErrStalePayload
	}

	if err := s.Store.Nonces().Record(ctx, ip, payload.Nonce, now); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return LoginPayload{}, ErrReplay
		}
		return LoginPayload{}, err
	}

	return payload, nil
}
