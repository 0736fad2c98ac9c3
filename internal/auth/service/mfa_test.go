package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func totpCode(t *testing.T, secret string, at time.Time) string {
	t.Helper()

	code, err := totp.GenerateCodeCustom(secret, at, totpOpts)
	require.NoError(t, err)
	return code
}

func TestMFAEnrolment(t *testing.T) {
	ctx := context.Background()
	stack := newLoginStack(t)

	_, err := stack.users.CreateUser(ctx, "erin", "s3cret99", "", false)
	require.NoError(t, err)

	setup, err := stack.mfa.GenerateSecret(ctx, "erin")
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	require.True(t, strings.HasPrefix(setup.URL, "otpauth://totp/"))
	require.Contains(t, setup.URL, "NodeWatch")

	t.Run("generating alone enables nothing", func(t *testing.T) {
		user, err := stack.store.Users().GetUserByUsername(ctx, "erin")
		require.NoError(t, err)
		require.False(t, user.HasMFA())
	})

	t.Run("a wrong code does not enable", func(t *testing.T) {
		err := stack.mfa.VerifyAndEnable(ctx, "erin", setup.Secret, "000000")
		require.ErrorIs(t, err, ErrInvalidTOTPCode)
	})

	t.Run("a working code enables", func(t *testing.T) {
		code := totpCode(t, setup.Secret, time.Now())
		require.NoError(t, stack.mfa.VerifyAndEnable(ctx, "erin", setup.Secret, code))

		user, err := stack.store.Users().GetUserByUsername(ctx, "erin")
		require.NoError(t, err)
		require.True(t, user.HasMFA())

		// The stored secret is ciphertext, never the base32 plaintext.
		require.NotNil(t, user.MFASecret)
		require.NotEqual(t, setup.Secret, *user.MFASecret)
	})

	t.Run("second enrolment is refused", func(t *testing.T) {
		_, err := stack.mfa.GenerateSecret(ctx, "erin")
		require.ErrorIs(t, err, ErrMFAAlreadyEnabled)

		err = stack.mfa.VerifyAndEnable(ctx, "erin", setup.Secret, totpCode(t, setup.Secret, time.Now()))
		require.ErrorIs(t, err, ErrMFAAlreadyEnabled)
	})

	t.Run("login-time codes verify with skew", func(t *testing.T) {
		require.NoError(t, stack.mfa.VerifyCode(ctx, "erin", totpCode(t, setup.Secret, time.Now())))
		require.NoError(t, stack.mfa.VerifyCode(ctx, "erin", totpCode(t, setup.Secret, time.Now().Add(-30*time.Second))))
		require.NoError(t, stack.mfa.VerifyCode(ctx, "erin", totpCode(t, setup.Secret, time.Now().Add(30*time.Second))))

		// Two periods out either way is the first rejected step.
		err := stack.mfa.VerifyCode(ctx, "erin", totpCode(t, setup.Secret, time.Now().Add(-60*time.Second)))
		require.ErrorIs(t, err, ErrInvalidTOTPCode)
		err = stack.mfa.VerifyCode(ctx, "erin", totpCode(t, setup.Secret, time.Now().Add(60*time.Second)))
		require.ErrorIs(t, err, ErrInvalidTOTPCode)
		err = stack.mfa.VerifyCode(ctx, "erin", totpCode(t, setup.Secret, time.Now().Add(-90*time.Second)))
		require.ErrorIs(t, err, ErrInvalidTOTPCode)
	})

	t.Run("disable clears the state", func(t *testing.T) {
		require.NoError(t, stack.mfa.Disable(ctx, "erin"))

		user, err := stack.store.Users().GetUserByUsername(ctx, "erin")
		require.NoError(t, err)
		require.False(t, user.HasMFA())

		err = stack.mfa.VerifyCode(ctx, "erin", "123456")
		require.ErrorIs(t, err, ErrMFANotEnabled)

		err = stack.mfa.Disable(ctx, "erin")
		require.ErrorIs(t, err, ErrMFANotEnabled)
	})
}
