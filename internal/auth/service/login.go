package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nodewatchers/nodewatch/internal/auth/domain"
	"github.com/nodewatchers/nodewatch/internal/auth/store"
	"github.com/nodewatchers/nodewatch/pkg/cryptox"
	"github.com/nodewatchers/nodewatch/pkg/sanitize"
	"github.com/nodewatchers/nodewatch/pkg/slogx"
)

var ErrInvalidCredentials = errors.New("invalid_credentials")

// LoginResult is the outcome of a password or MFA verification step. Either
// MFARequired is set with a token for the next step, or AccountToken holds
// a completed session.
type LoginResult struct {
	MFARequired  bool
	MFAToken     string
	AccountToken string
	Username     string
	Admin        bool
	AttemptsLeft int
}

// LoginService orchestrates the full login pipeline: slider challenge,
// encrypted credential submission, optional MFA, session issue.
type LoginService struct {
	Store    store.Store
	Scenes   *SceneTokenService
	Slider   *SliderService
	Box      *LoginBoxService
	MFA      *MFAService
	Accounts *AccountTokenService
	Registry *SceneRegistry
}

// GetSlider issues a robots scene token plus a slider challenge whose target
// is remembered under that token.
func (s *LoginService) GetSlider(ctx context.Context, ip string) (string, domain.SliderChallenge, error) {
	token, err := s.Scenes.Issue(ctx, ip, domain.SceneRobots, "")
	if err != nil {
		return "", domain.SliderChallenge{}, err
	}

	challenge := s.Slider.NewChallenge()
	s.Slider.Remember(token, challenge.Target, time.Now().Add(SceneTokenTTL))
	return token, challenge, nil
}

// VerifySlider consumes the challenge behind the robots token and, when the
// submitted position matches, advances the caller to the account scene.
func (s *LoginService) VerifySlider(ctx context.Context, ip, robotsToken string, position int) (string, error) {
	if _, err := s.Scenes.Validate(ctx, ip, robotsToken, domain.SceneRobots); err != nil {
		return "", err
	}

	target, ok := s.Slider.Consume(robotsToken)
	if !ok {
		return "", ErrChallengeExpired
	}

	if err := s.Slider.VerifyPixel(position, target, domain.SliderTolerance); err != nil {
		return "", err
	}

	return s.Scenes.Issue(ctx, ip, domain.SceneAccount, "")
}

// VerifyAccountSecure opens the encrypted credential envelope and checks the
// password. Wrong credentials burn a login attempt and can escalate to a
// ban. Users with MFA enabled get an mfa scene token instead of a session.
func (s *LoginService) VerifyAccountSecure(ctx context.Context, ip, encrypted string) (LoginResult, error) {
	// A banned IP gets nothing, not even envelope processing.
	if err := s.Scenes.CheckBan(ctx, ip); err != nil {
		return LoginResult{}, err
	}

	payload, err := s.Box.Open(ctx, ip, encrypted)
	if err != nil {
		return LoginResult{}, err
	}

	username, err := sanitize.Common(payload.Username)
	if err != nil {
		return s.failAttempt(ctx, ip)
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return s.failAttempt(ctx, ip)
	}
	if err != nil {
		return LoginResult{}, err
	}

	if err := cryptox.VerifyPassword(payload.Password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return s.failAttempt(ctx, ip)
		}
		return LoginResult{}, err
	}

	if user.HasMFA() {
		mfaToken, err := s.Scenes.Issue(ctx, ip, domain.SceneMFA, user.Username)
		if err != nil {
			return LoginResult{}, err
		}
		return LoginResult{MFARequired: true, MFAToken: mfaToken}, nil
	}

	return s.complete(ctx, ip, user)
}

// VerifyMFA finishes a login that required a TOTP code. The mfa scene token
// carries the username that already passed the password check.
func (s *LoginService) VerifyMFA(ctx context.Context, ip, mfaToken, code string) (LoginResult, error) {
	claims, err := s.Scenes.Validate(ctx, ip, mfaToken, domain.SceneMFA)
	if err != nil {
		return LoginResult{}, err
	}
	if claims.Username == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	if _, err := sanitize.OTPCode(code); err != nil {
		return s.failAttempt(ctx, ip)
	}

	if err := s.MFA.VerifyCode(ctx, claims.Username, code); err != nil {
		if errors.Is(err, ErrInvalidTOTPCode) {
			return s.failAttempt(ctx, ip)
		}
		return LoginResult{}, err
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, claims.Username)
	if err != nil {
		return LoginResult{}, err
	}

	return s.complete(ctx, ip, user)
}

// complete issues the session token, records the login and resets all the
// per-IP throttling state the pipeline accumulated.
func (s *LoginService) complete(ctx context.Context, ip string, user domain.User) (LoginResult, error) {
	token, err := s.Accounts.Issue(ctx, user)
	if err != nil {
		return LoginResult{}, err
	}

	now := time.Now()
	if err := s.Store.Users().UpdateLastLogin(ctx, user.ID, ip, now); err != nil {
		return LoginResult{}, err
	}

	if err := s.Scenes.ClearIP(ctx, ip); err != nil {
		return LoginResult{}, err
	}
	s.Registry.ClearIP(ip)

	slogx.FromContext(ctx).Info("login completed",
		slog.String("username", user.Username),
		slog.String("ip", ip),
	)

	return LoginResult{
		AccountToken: token,
		Username:     user.Username,
		Admin:        user.Admin,
	}, nil
}

// failAttempt burns one failed-login attempt and reports what is left, or
// ErrBanned when the attempt tripped the counter.
func (s *LoginService) failAttempt(ctx context.Context, ip string) (LoginResult, error) {
	remaining, err := s.Scenes.FailedLoginAttempt(ctx, ip)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{AttemptsLeft: remaining}, ErrInvalidCredentials
}
