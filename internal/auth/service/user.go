package service

import (
	"context"
	"fmt"

	"github.com/nodewatchers/nodewatch/internal/auth/domain"
	"github.com/nodewatchers/nodewatch/internal/auth/store"
	"github.com/nodewatchers/nodewatch/pkg/cryptox"
	"github.com/nodewatchers/nodewatch/pkg/idx"
	"github.com/nodewatchers/nodewatch/pkg/sanitize"
)

// UserService covers account provisioning and the self-service settings:
// password and email changes.
type UserService struct {
	Store store.Store
}

// CreateUser provisions a new account. Username and password are validated
// with the same rules the login path enforces.
func (s *UserService) CreateUser(ctx context.Context, username, password, email string, admin bool) (domain.User, error) {
	username, err := sanitize.Common(username)
	if err != nil {
		return domain.User{}, fmt.Errorf("invalid username: %w", err)
	}
	if _, err := sanitize.Password(password); err != nil {
		return domain.User{}, fmt.Errorf("invalid password: %w", err)
	}
	if email != "" {
		if email, err = sanitize.Email(email); err != nil {
			return domain.User{}, fmt.Errorf("invalid email: %w", err)
		}
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           idx.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Admin:        admin,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// ChangePassword swaps the password after re-proving the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := cryptox.VerifyPassword(current, user.PasswordHash); err != nil {
		return err
	}

	if _, err := sanitize.Password(next); err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.Store.Users().UpdatePasswordHash(ctx, userID, hash)
}

// ChangeEmail updates the account email.
func (s *UserService) ChangeEmail(ctx context.Context, userID, email string) error {
	email, err := sanitize.Email(email)
	if err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}
	return s.Store.Users().UpdateEmail(ctx, userID, email)
}
