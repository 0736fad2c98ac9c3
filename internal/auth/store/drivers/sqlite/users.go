package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/nodewatchers/nodewatch/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, username, email, password_hash, is_admin,
	mfa_enabled, mfa_secret, last_login_ip, last_login_at, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, is_admin)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Admin)
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, newHash, userID)
	return err
}

func (r *usersRepo) UpdateEmail(ctx context.Context, userID string, email string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET email = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, email, userID)
	return err
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, userID string, ip string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET last_login_ip = ?, last_login_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, ip, at.UTC(), userID)
	return err
}

func (r *usersRepo) UpdateMFASecret(ctx context.Context, userID string, secret string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET mfa_secret = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, stringToNullString(secret), userID)
	return err
}

func (r *usersRepo) EnableMFA(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET mfa_enabled = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, userID)
	return err
}

func (r *usersRepo) DisableMFA(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET mfa_enabled = NULL, mfa_secret = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, userID)
	return err
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	return err
}

func (r *usersRepo) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u           domain.User
		mfaEnabled  sql.NullTime
		mfaSecret   sql.NullString
		lastLoginAt sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Admin,
		&mfaEnabled, &mfaSecret, &u.LastLoginIP, &lastLoginAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	if mfaEnabled.Valid {
		u.MFAEnabled = &mfaEnabled.Time
	}
	if mfaSecret.Valid {
		u.MFASecret = &mfaSecret.String
	}
	if lastLoginAt.Valid {
		u.LastLoginAt = &lastLoginAt.Time
	}
	return u, nil
}

func stringToNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
