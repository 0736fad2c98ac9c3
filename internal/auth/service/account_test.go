package service

import (
	"context"
	"testing"
	"time"

	"github.com/nodewatchers/nodewatch/internal/auth/domain"
	"github.com/nodewatchers/nodewatch/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestAccountTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	stack := newLoginStack(t)

	user, err := stack.users.CreateUser(ctx, "alice", "s3cret99", "alice@example.com", false)
	require.NoError(t, err)

	token, err := stack.accounts.Issue(ctx, user)
	require.NoError(t, err)

	t.Run("valid token resolves the live identity", func(t *testing.T) {
		identity, err := stack.accounts.Validate(ctx, token)
		require.NoError(t, err)
		require.Equal(t, user.ID, identity.UserID)
		require.Equal(t, "alice", identity.Username)
		require.False(t, identity.Admin)
	})

	t.Run("garbage is rejected as format", func(t *testing.T) {
		_, err := stack.accounts.Validate(ctx, "definitely-not-a-jwt")
		require.Equal(t, jwtx.ReasonFormat, jwtx.ReasonOf(err))
	})

	t.Run("revocation survives an otherwise valid token", func(t *testing.T) {
		require.NoError(t, stack.accounts.Revoke(ctx, token))

		_, err := stack.accounts.Validate(ctx, token)
		require.Equal(t, jwtx.ReasonBanned, jwtx.ReasonOf(err))
	})
}

func TestAccountTokenExpired(t *testing.T) {
	ctx := context.Background()
	stack := newLoginStack(t)

	user, err := stack.users.CreateUser(ctx, "bob", "s3cret99", "", false)
	require.NoError(t, err)

	key, err := stack.accounts.Keys.Key(ctx, domain.KeyAccount)
	require.NoError(t, err)

	claims := jwtx.NewAccountClaims(user.Username, user.ID, user.Admin, -time.Minute, time.Now())
	token, err := jwtx.Sign(claims, key)
	require.NoError(t, err)

	_, err = stack.accounts.Validate(ctx, token)
	require.Equal(t, jwtx.ReasonExpired, jwtx.ReasonOf(err))
}

func TestAccountTokenCrossChecksTheDatabase(t *testing.T) {
	ctx := context.Background()
	stack := newLoginStack(t)

	user, err := stack.users.CreateUser(ctx, "carol", "s3cret99", "", false)
	require.NoError(t, err)

	key, err := stack.accounts.Keys.Key(ctx, domain.KeyAccount)
	require.NoError(t, err)

	t.Run("privilege claims must match the record", func(t *testing.T) {
		// Signed claims promoting carol to admin; the database says otherwise.
		claims := jwtx.NewAccountClaims(user.Username, user.ID, true, AccountTokenTTL, time.Now())
		token, err := jwtx.Sign(claims, key)
		require.NoError(t, err)

		_, err = stack.accounts.Validate(ctx, token)
		require.Equal(t, jwtx.ReasonUserMismatch, jwtx.ReasonOf(err))
	})

	t.Run("empty payload is rejected", func(t *testing.T) {
		claims := jwtx.NewAccountClaims("", "", false, AccountTokenTTL, time.Now())
		token, err := jwtx.Sign(claims, key)
		require.NoError(t, err)

		_, err = stack.accounts.Validate(ctx, token)
		require.Equal(t, jwtx.ReasonInvalidPayload, jwtx.ReasonOf(err))
	})

	t.Run("deleted user invalidates the token", func(t *testing.T) {
		token, err := stack.accounts.Issue(ctx, user)
		require.NoError(t, err)

		require.NoError(t, stack.store.Users().DeleteUser(ctx, user.ID))

		_, err = stack.accounts.Validate(ctx, token)
		require.Equal(t, jwtx.ReasonUserMismatch, jwtx.ReasonOf(err))
	})
}
