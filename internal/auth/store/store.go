package store

import (
	"context"
	"errors"
	"time"

	"github.com/nodewatchers/nodewatch/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable. We can change having the sub-repos as methods later but we do it
// now so we can have more control and actively stop people from accidently
// doing transactions within transactions.
type Store interface {
	Users() Users
	Bans() Bans
	Counters() Counters
	RevokedTokens() RevokedTokens
	Nonces() Nonces
	SigningKeys() SigningKeys

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., counter bumps).
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// This is the recommended way to handle transactions as it automatically
	// handles commit/rollback logic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// UpdateEmail sets the email and bumps updated_at.
	UpdateEmail(ctx context.Context, userID string, email string) error

	// UpdateLastLogin records the successful login's source IP and time.
	UpdateLastLogin(ctx context.Context, userID string, ip string, at time.Time) error

	// UpdateMFASecret sets the encrypted MFA secret for a user.
	UpdateMFASecret(ctx context.Context, userID string, secret string) error

	// EnableMFA marks MFA as enabled for a user (sets mfa_enabled timestamp).
	EnableMFA(ctx context.Context, userID string) error

	// DisableMFA disables MFA for a user (clears mfa_enabled and mfa_secret).
	DisableMFA(ctx context.Context, userID string) error

	// DeleteUser removes a user.
	DeleteUser(ctx context.Context, userID string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type Bans interface {
	// Upsert bans an IP until the given time, replacing any existing entry.
	Upsert(ctx context.Context, ip string, until time.Time) error

	// Get returns the ban row for an IP, expired or not.
	Get(ctx context.Context, ip string) (domain.Ban, error)

	// Delete lifts a ban.
	Delete(ctx context.Context, ip string) error

	// DeleteExpired removes all bans that have lapsed (housekeeping).
	DeleteExpired(ctx context.Context, now time.Time) error
}

type Counters interface {
	// Bump increments the per-IP rolling counter of the given kind and
	// returns the new count. A counter whose window has rolled over restarts
	// at 1. Call inside a transaction for per-key atomicity.
	Bump(ctx context.Context, ip string, kind domain.CounterKind, window time.Duration, now time.Time) (int, error)

	// Get returns the counter row, expired or not.
	Get(ctx context.Context, ip string, kind domain.CounterKind) (domain.RateCounter, error)

	// Delete resets a counter.
	Delete(ctx context.Context, ip string, kind domain.CounterKind) error

	// DeleteStale removes counters whose window started before the cutoff
	// (housekeeping).
	DeleteStale(ctx context.Context, cutoff time.Time) error
}

type RevokedTokens interface {
	// Add records a revoked token until its natural expiry.
	Add(ctx context.Context, token string, expiresAt time.Time) error

	// IsRevoked reports whether the token sits on the still-live revocation list.
	IsRevoked(ctx context.Context, token string, now time.Time) (bool, error)

	// DeleteExpired drops revocation entries past their expiry (housekeeping).
	DeleteExpired(ctx context.Context, now time.Time) error
}

type Nonces interface {
	// Record stores an (ip, nonce) pair, returning ErrAlreadyExists when the
	// pair was already seen. This is the replay check and the ledger write in
	// one step.
	Record(ctx context.Context, ip string, nonce string, seenAt time.Time) error

	// DeleteOld removes ledger entries seen before the cutoff (housekeeping).
	DeleteOld(ctx context.Context, cutoff time.Time) error
}

type SigningKeys interface {
	// Get fetches a named key.
	Get(ctx context.Context, name string) (domain.SigningKey, error)

	// Put inserts or replaces a named key.
	Put(ctx context.Context, key domain.SigningKey) error
}
