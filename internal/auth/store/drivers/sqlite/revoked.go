package sqlite

import (
	"context"
	"time"
)

type revokedTokensRepo struct {
	db dbtx
}

func (r *revokedTokensRepo) Add(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (token, expires_at) VALUES (?, ?)
		ON CONFLICT (token) DO UPDATE SET expires_at = excluded.expires_at`,
		token, expiresAt.UTC())
	return err
}

func (r *revokedTokensRepo) IsRevoked(ctx context.Context, token string, now time.Time) (bool, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM revoked_tokens WHERE token = ? AND expires_at > ?`,
		token, now.UTC()).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *revokedTokensRepo) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at <= ?`, now.UTC())
	return err
}
