package sqlite

import (
	"context"
	"time"

	"github.com/nodewatchers/nodewatch/internal/auth/store"
)

type noncesRepo struct {
	db dbtx
}

func (r *noncesRepo) Record(ctx context.Context, ip string, nonce string, seenAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO login_nonces (ip, nonce, seen_at) VALUES (?, ?, ?)
		ON CONFLICT (ip, nonce) DO NOTHING`,
		ip, nonce, seenAt.UTC())
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

func (r *noncesRepo) DeleteOld(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM login_nonces WHERE seen_at < ?`, cutoff.UTC())
	return err
}
