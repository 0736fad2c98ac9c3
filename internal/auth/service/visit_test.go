package service

import (
	"context"
	"testing"

	"github.com/nodewatchers/nodewatch/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestVisitTokenIssueAndValidate(t *testing.T) {
	ctx := context.Background()
	stack := newLoginStack(t)

	visits := &VisitTokenService{Accounts: stack.accounts, Keys: stack.accounts.Keys}

	user, err := stack.users.CreateUser(ctx, "dave", "s3cret99", "", true)
	require.NoError(t, err)

	accountToken, err := stack.accounts.Issue(ctx, user)
	require.NoError(t, err)

	visitToken, err := visits.Issue(ctx, accountToken, testIP)
	require.NoError(t, err)

	t.Run("validates from the same ip", func(t *testing.T) {
		identity, err := visits.Validate(ctx, visitToken, testIP)
		require.NoError(t, err)
		require.Equal(t, user.ID, identity.UserID)
		require.Equal(t, "dave", identity.Username)
		require.True(t, identity.Admin)
	})

	t.Run("rejects a different ip", func(t *testing.T) {
		_, err := visits.Validate(ctx, visitToken, testOtherIP)
		require.Equal(t, jwtx.ReasonIPMismatch, jwtx.ReasonOf(err))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := visits.Validate(ctx, "nope", testIP)
		require.Equal(t, jwtx.ReasonFormat, jwtx.ReasonOf(err))
	})

	t.Run("refuses to mint from a revoked account token", func(t *testing.T) {
		require.NoError(t, stack.accounts.Revoke(ctx, accountToken))

		_, err := visits.Issue(ctx, accountToken, testIP)
		require.Equal(t, jwtx.ReasonBanned, jwtx.ReasonOf(err))
	})

	t.Run("account tokens are not accepted as visit tokens", func(t *testing.T) {
		fresh, err := stack.accounts.Issue(ctx, user)
		require.NoError(t, err)

		// Different signing key, so the signature check fails first.
		_, err = visits.Validate(ctx, fresh, testIP)
		require.Equal(t, jwtx.ReasonSignature, jwtx.ReasonOf(err))
	})
}
