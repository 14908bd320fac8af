package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

// BlacklistRepo stores revoked token digests until their natural expiry.
type BlacklistRepo struct {
	db *sql.DB
}

func NewBlacklistRepo(db *sql.DB) *BlacklistRepo {
	return &BlacklistRepo{db: db}
}

func (r *BlacklistRepo) Insert(ctx context.Context, digest string, expiresAt, _ time.Time) error {
	const q = `
INSERT INTO token_blacklist (digest, expires_at)
VALUES ($1, $2)
ON CONFLICT (digest) DO NOTHING;
`
	if _, err := r.db.ExecContext(ctx, q, digest, expiresAt); err != nil {
		return domain.ErrStoreUnavailable(err)
	}
	return nil
}

func (r *BlacklistRepo) Exists(ctx context.Context, digest string, now time.Time) (bool, error) {
	const q = `
SELECT EXISTS (
    SELECT 1 FROM token_blacklist
    WHERE digest = $1 AND expires_at > $2
);
`
	var ok bool
	if err := r.db.QueryRowContext(ctx, q, digest, now).Scan(&ok); err != nil {
		return false, domain.ErrStoreUnavailable(err)
	}
	return ok, nil
}

func (r *BlacklistRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `DELETE FROM token_blacklist WHERE expires_at <= $1;`
	res, err := r.db.ExecContext(ctx, q, now)
	if err != nil {
		return 0, domain.ErrStoreUnavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.ErrStoreUnavailable(err)
	}
	return n, nil
}
