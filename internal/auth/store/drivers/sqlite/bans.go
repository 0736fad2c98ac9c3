package sqlite

import (
	"context"
	"time"

	"github.com/nodewatchers/nodewatch/internal/auth/domain"
)

type bansRepo struct {
	db dbtx
}

func (r *bansRepo) Upsert(ctx context.Context, ip string, until time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ip_bans (ip, banned_until) VALUES (?, ?)
		ON CONFLICT (ip) DO UPDATE SET banned_until = excluded.banned_until`,
		ip, until.UTC())
	return err
}

func (r *bansRepo) Get(ctx context.Context, ip string) (domain.Ban, error) {
	var b domain.Ban
	err := r.db.QueryRowContext(ctx,
		`SELECT ip, banned_until FROM ip_bans WHERE ip = ?`, ip).
		Scan(&b.IP, &b.BannedUntil)
	if err != nil {
		return domain.Ban{}, mapNotFound(err)
	}
	return b, nil
}

func (r *bansRepo) Delete(ctx context.Context, ip string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM ip_bans WHERE ip = ?`, ip)
	return err
}

func (r *bansRepo) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM ip_bans WHERE banned_until <= ?`, now.UTC())
	return err
}
