package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/nodewatchers/nodewatch/internal/auth/domain"
)

type countersRepo struct {
	db dbtx
}

// Bump does a read-modify-write on the counter row. Callers wrap it in a
// transaction so two concurrent bumps for the same key cannot interleave.
func (r *countersRepo) Bump(ctx context.Context, ip string, kind domain.CounterKind, window time.Duration, now time.Time) (int, error) {
	var (
		count       int
		windowStart time.Time
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT count, window_start FROM rate_counters WHERE ip = ? AND kind = ?`,
		ip, string(kind)).Scan(&count, &windowStart)

	switch {
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return 0, err
	case errors.Is(err, sql.ErrNoRows) || now.Sub(windowStart) > window:
		// Fresh key or rolled-over window, restart at 1
		count = 1
		windowStart = now.UTC()
	default:
		count++
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO rate_counters (ip, kind, count, window_start) VALUES (?, ?, ?, ?)
		ON CONFLICT (ip, kind) DO UPDATE SET
			count = excluded.count,
			window_start = excluded.window_start`,
		ip, string(kind), count, windowStart.UTC())
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *countersRepo) Get(ctx context.Context, ip string, kind domain.CounterKind) (domain.RateCounter, error) {
	c := domain.RateCounter{IP: ip, Kind: kind}
	err := r.db.QueryRowContext(ctx, `
		SELECT count, window_start FROM rate_counters WHERE ip = ? AND kind = ?`,
		ip, string(kind)).Scan(&c.Count, &c.WindowStart)
	if err != nil {
		return domain.RateCounter{}, mapNotFound(err)
	}
	return c, nil
}

func (r *countersRepo) Delete(ctx context.Context, ip string, kind domain.CounterKind) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM rate_counters WHERE ip = ? AND kind = ?`, ip, string(kind))
	return err
}

func (r *countersRepo) DeleteStale(ctx context.Context, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM rate_counters WHERE window_start < ?`, cutoff.UTC())
	return err
}
