package sqlite

import (
	"context"

	"github.com/nodewatchers/nodewatch/internal/auth/domain"
)

type signingKeysRepo struct {
	db dbtx
}

func (r *signingKeysRepo) Get(ctx context.Context, name string) (domain.SigningKey, error) {
	var k domain.SigningKey
	err := r.db.QueryRowContext(ctx,
		`SELECT name, secret, rotated_at FROM signing_keys WHERE name = ?`, name).
		Scan(&k.Name, &k.Secret, &k.RotatedAt)
	if err != nil {
		return domain.SigningKey{}, mapNotFound(err)
	}
	return k, nil
}

func (r *signingKeysRepo) Put(ctx context.Context, key domain.SigningKey) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO signing_keys (name, secret, rotated_at) VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			secret = excluded.secret,
			rotated_at = excluded.rotated_at`,
		key.Name, key.Secret, key.RotatedAt.UTC())
	return err
}
