package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nodewatchers/nodewatch/internal/auth/domain"
	"github.com/nodewatchers/nodewatch/internal/auth/store"
	"github.com/nodewatchers/nodewatch/pkg/cryptox"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var (
	ErrInvalidTOTPCode   = errors.New("invalid TOTP code")
	ErrMFANotEnabled     = errors.New("MFA not enabled for this user")
	ErrMFAAlreadyEnabled = errors.New("MFA already enabled for this user")
)

// totpOpts is the accepted code shape: 30 second period, six digits, SHA-1,
// one period of skew either side (90 seconds effective).
var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// MFAService handles TOTP enrolment and verification. Secrets are encrypted
// at rest; the plaintext secret only exists in responses during enrolment.
type MFAService struct {
	Store  store.Store
	Issuer string // issuer name shown in authenticator apps
}

// GenerateSecret creates a fresh 160-bit TOTP secret and provisioning URL.
// Nothing is persisted; the caller must come back through VerifyAndEnable
// with a working code.
func (s *MFAService) GenerateSecret(ctx context.Context, username string) (domain.MFASetup, error) {
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		return domain.MFASetup{}, err
	}
	if user.HasMFA() {
		return domain.MFASetup{}, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: username,
		SecretSize:  20,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.MFASetup{}, fmt.Errorf("generate TOTP key: %w", err)
	}

	return domain.MFASetup{Secret: key.Secret(), URL: key.URL()}, nil
}

// VerifyAndEnable is the second half of the two-phase enrolment: the user
// proves they hold the secret by producing a valid code, and only then is
// the encrypted secret committed and the flag flipped.
func (s *MFAService) VerifyAndEnable(ctx context.Context, username, secret, code string) error {
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user.HasMFA() {
		return ErrMFAAlreadyEnabled
	}

	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totpOpts)
	if err != nil || !ok {
		return ErrInvalidTOTPCode
	}

	encrypted, err := cryptox.EncryptSecret(secret)
	if err != nil {
		return fmt.Errorf("encrypt MFA secret: %w", err)
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdateMFASecret(ctx, user.ID, encrypted); err != nil {
			return err
		}
		return tx.Users().EnableMFA(ctx, user.ID)
	})
}

// Disable clears the secret and the enabled flag.
func (s *MFAService) Disable(ctx context.Context, username string) error {
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if !user.HasMFA() {
		return ErrMFANotEnabled
	}
	return s.Store.Users().DisableMFA(ctx, user.ID)
}

// VerifyCode checks a login-time TOTP code for a user with MFA enabled.
func (s *MFAService) VerifyCode(ctx context.Context, username, code string) error {
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if !user.HasMFA() {
		return ErrMFANotEnabled
	}

	secret, err := cryptox.DecryptSecret(*user.MFASecret)
	if err != nil {
		return fmt.Errorf("decrypt MFA secret: %w", err)
	}

	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totpOpts)
	if err != nil || !ok {
		return ErrInvalidTOTPCode
	}
	return nil
}
