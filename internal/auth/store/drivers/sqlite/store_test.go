package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nodewatchers/nodewatch/internal/auth/domain"
	"github.com/nodewatchers/nodewatch/internal/auth/store"
	"github.com/nodewatchers/nodewatch/internal/auth/store/drivers/sqlite"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) store.Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "auth.db") + "?_busy_timeout=5000"
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func TestUsersRepo(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)

	empty, err := st.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	user := domain.User{
		ID:           "01J0000000000000000000TEST",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
	}
	require.NoError(t, st.Users().CreateUser(ctx, user))

	empty, err = st.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)

	t.Run("fetch by id and username agree", func(t *testing.T) {
		byID, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		byName, err := st.Users().GetUserByUsername(ctx, "alice")
		require.NoError(t, err)

		require.Equal(t, byID.ID, byName.ID)
		require.Equal(t, "alice@example.com", byID.Email)
		require.False(t, byID.Admin)
		require.Nil(t, byID.MFAEnabled)
		require.Nil(t, byID.MFASecret)
		require.Nil(t, byID.LastLoginAt)
		require.False(t, byID.CreatedAt.IsZero())
	})

	t.Run("unknown lookups return ErrNotFound", func(t *testing.T) {
		_, err := st.Users().GetUserByID(ctx, "missing")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = st.Users().GetUserByUsername(ctx, "nobody")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate username is rejected", func(t *testing.T) {
		dup := user
		dup.ID = "01J0000000000000000000DUPE"
		require.Error(t, st.Users().CreateUser(ctx, dup))
	})

	t.Run("updates stick", func(t *testing.T) {
		require.NoError(t, st.Users().UpdatePasswordHash(ctx, user.ID, "new-hash"))
		require.NoError(t, st.Users().UpdateEmail(ctx, user.ID, "new@example.com"))

		loginAt := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, st.Users().UpdateLastLogin(ctx, user.ID, "203.0.113.7", loginAt))

		fresh, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.Equal(t, "new-hash", fresh.PasswordHash)
		require.Equal(t, "new@example.com", fresh.Email)
		require.Equal(t, "203.0.113.7", fresh.LastLoginIP)
		require.NotNil(t, fresh.LastLoginAt)
	})

	t.Run("mfa enable and disable round trip", func(t *testing.T) {
		require.NoError(t, st.Users().UpdateMFASecret(ctx, user.ID, "ciphertext"))
		require.NoError(t, st.Users().EnableMFA(ctx, user.ID))

		fresh, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, fresh.HasMFA())
		require.NotNil(t, fresh.MFASecret)
		require.Equal(t, "ciphertext", *fresh.MFASecret)

		require.NoError(t, st.Users().DisableMFA(ctx, user.ID))
		fresh, err = st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.False(t, fresh.HasMFA())
		require.Nil(t, fresh.MFASecret)
	})

	t.Run("delete removes the row", func(t *testing.T) {
		require.NoError(t, st.Users().DeleteUser(ctx, user.ID))
		_, err := st.Users().GetUserByID(ctx, user.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestBansRepo(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	now := time.Now().UTC()

	_, err := st.Bans().Get(ctx, "203.0.113.1")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, st.Bans().Upsert(ctx, "203.0.113.1", now.Add(30*time.Minute)))

	ban, err := st.Bans().Get(ctx, "203.0.113.1")
	require.NoError(t, err)
	require.True(t, ban.Active(now))

	t.Run("upsert replaces the expiry", func(t *testing.T) {
		require.NoError(t, st.Bans().Upsert(ctx, "203.0.113.1", now.Add(time.Hour)))

		ban, err := st.Bans().Get(ctx, "203.0.113.1")
		require.NoError(t, err)
		require.WithinDuration(t, now.Add(time.Hour), ban.BannedUntil, time.Second)
	})

	t.Run("delete lifts the ban", func(t *testing.T) {
		require.NoError(t, st.Bans().Delete(ctx, "203.0.113.1"))
		_, err := st.Bans().Get(ctx, "203.0.113.1")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("housekeeping drops only lapsed bans", func(t *testing.T) {
		require.NoError(t, st.Bans().Upsert(ctx, "203.0.113.2", now.Add(-time.Minute)))
		require.NoError(t, st.Bans().Upsert(ctx, "203.0.113.3", now.Add(time.Minute)))

		require.NoError(t, st.Bans().DeleteExpired(ctx, now))

		_, err := st.Bans().Get(ctx, "203.0.113.2")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = st.Bans().Get(ctx, "203.0.113.3")
		require.NoError(t, err)
	})
}

func TestCountersRepo(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	now := time.Now().UTC()
	window := 10 * time.Minute

	t.Run("bump counts up inside the window", func(t *testing.T) {
		for want := 1; want <= 3; want++ {
			got, err := st.Counters().Bump(ctx, "203.0.113.1", domain.CounterScene, window, now)
			require.NoError(t, err)
			require.Equal(t, want, got)
		}
	})

	t.Run("kinds count independently", func(t *testing.T) {
		got, err := st.Counters().Bump(ctx, "203.0.113.1", domain.CounterLogin, window, now)
		require.NoError(t, err)
		require.Equal(t, 1, got)
	})

	t.Run("a rolled-over window restarts at one", func(t *testing.T) {
		later := now.Add(window + time.Second)
		got, err := st.Counters().Bump(ctx, "203.0.113.1", domain.CounterScene, window, later)
		require.NoError(t, err)
		require.Equal(t, 1, got)

		row, err := st.Counters().Get(ctx, "203.0.113.1", domain.CounterScene)
		require.NoError(t, err)
		require.Equal(t, 1, row.Count)
		require.WithinDuration(t, later, row.WindowStart, time.Second)
	})

	t.Run("delete resets", func(t *testing.T) {
		require.NoError(t, st.Counters().Delete(ctx, "203.0.113.1", domain.CounterScene))
		_, err := st.Counters().Get(ctx, "203.0.113.1", domain.CounterScene)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("housekeeping drops stale windows", func(t *testing.T) {
		_, err := st.Counters().Bump(ctx, "203.0.113.9", domain.CounterScene, window, now.Add(-time.Hour))
		require.NoError(t, err)

		require.NoError(t, st.Counters().DeleteStale(ctx, now.Add(-2*window)))

		_, err = st.Counters().Get(ctx, "203.0.113.9", domain.CounterScene)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestRevokedTokensRepo(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	now := time.Now().UTC()

	revoked, err := st.RevokedTokens().IsRevoked(ctx, "tok-a", now)
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, st.RevokedTokens().Add(ctx, "tok-a", now.Add(time.Hour)))

	revoked, err = st.RevokedTokens().IsRevoked(ctx, "tok-a", now)
	require.NoError(t, err)
	require.True(t, revoked)

	t.Run("lapsed entries stop matching", func(t *testing.T) {
		require.NoError(t, st.RevokedTokens().Add(ctx, "tok-b", now.Add(-time.Minute)))

		revoked, err := st.RevokedTokens().IsRevoked(ctx, "tok-b", now)
		require.NoError(t, err)
		require.False(t, revoked)
	})

	t.Run("housekeeping drops lapsed entries", func(t *testing.T) {
		require.NoError(t, st.RevokedTokens().DeleteExpired(ctx, now))

		revoked, err := st.RevokedTokens().IsRevoked(ctx, "tok-a", now)
		require.NoError(t, err)
		require.True(t, revoked)
	})
}

func TestNoncesRepo(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	now := time.Now().UTC()

	require.NoError(t, st.Nonces().Record(ctx, "203.0.113.1", "n-1", now))

	t.Run("the same pair is a replay", func(t *testing.T) {
		err := st.Nonces().Record(ctx, "203.0.113.1", "n-1", now)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("same nonce from another ip is distinct", func(t *testing.T) {
		require.NoError(t, st.Nonces().Record(ctx, "203.0.113.2", "n-1", now))
	})

	t.Run("pruned nonces can be seen again", func(t *testing.T) {
		require.NoError(t, st.Nonces().DeleteOld(ctx, now.Add(time.Second)))
		require.NoError(t, st.Nonces().Record(ctx, "203.0.113.1", "n-1", now))
	})
}

func TestSigningKeysRepo(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	_, err := st.SigningKeys().Get(ctx, "account")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, st.SigningKeys().Put(ctx, domain.SigningKey{
		Name:      "account",
		Secret:    "c2VjcmV0LW9uZQ==",
		RotatedAt: now,
	}))

	key, err := st.SigningKeys().Get(ctx, "account")
	require.NoError(t, err)
	require.Equal(t, "c2VjcmV0LW9uZQ==", key.Secret)

	t.Run("put replaces in place", func(t *testing.T) {
		require.NoError(t, st.SigningKeys().Put(ctx, domain.SigningKey{
			Name:      "account",
			Secret:    "c2VjcmV0LXR3bw==",
			RotatedAt: now.Add(time.Hour),
		}))

		key, err := st.SigningKeys().Get(ctx, "account")
		require.NoError(t, err)
		require.Equal(t, "c2VjcmV0LXR3bw==", key.Secret)
		require.WithinDuration(t, now.Add(time.Hour), key.RotatedAt, time.Second)
	})
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	now := time.Now().UTC()

	t.Run("a returned error rolls everything back", func(t *testing.T) {
		sentinel := errors.New("boom")
		err := st.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Bans().Upsert(ctx, "203.0.113.1", now.Add(time.Hour)); err != nil {
				return err
			}
			return sentinel
		})
		require.ErrorIs(t, err, sentinel)

		_, err = st.Bans().Get(ctx, "203.0.113.1")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("nil commits", func(t *testing.T) {
		err := st.WithTx(ctx, func(tx store.Tx) error {
			return tx.Bans().Upsert(ctx, "203.0.113.1", now.Add(time.Hour))
		})
		require.NoError(t, err)

		_, err = st.Bans().Get(ctx, "203.0.113.1")
		require.NoError(t, err)
	})
}
