package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// ---------- reads ----------

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	if email == "" {
		return domain.Account{}, domain.ErrMissingField("email")
	}

	const q = `SELECT ` + accountColumns + `
FROM accounts
WHERE email = $1
LIMIT 1;
`
	return r.getOne(ctx, q, email)
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (domain.Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Account{}, domain.ErrMissingField("id")
	}

	const q = `SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1
LIMIT 1;
`
	return r.getOne(ctx, q, id)
}

func (r *AccountRepo) getOne(ctx context.Context, q string, arg any) (domain.Account, error) {
	ar, err := scanAccount(r.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if isNoRows(err) {
			return domain.Account{}, domain.ErrAccountNotFound()
		}
		return domain.Account{}, domain.ErrStoreUnavailable(err)
	}
	return ar.toDomain(), nil
}

// ---------- writes ----------

func (r *AccountRepo) Create(ctx context.Context, a domain.Account) (domain.Account, error) {
	if a.ID == "" {
		return domain.Account{}, domain.ErrMissingField("id")
	}
	if a.Email == "" {
		return domain.Account{}, domain.ErrMissingField("email")
	}
	if a.PasswordHash == "" {
		return domain.Account{}, domain.ErrMissingField("password_hash")
	}
	if a.Role == "" {
		a.Role = domain.RoleEmployee
	}
	createdAt := sql.NullTime{Time: a.CreatedAt, Valid: !a.CreatedAt.IsZero()}
	code, exp := otpArgs(a.OTP)

	const q = `
INSERT INTO accounts (id, email, name, password_hash, role, verified, otp_code, otp_expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()), COALESCE($9, NOW()))
RETURNING ` + accountColumns + `;
`
	ar, err := scanAccount(r.db.QueryRowContext(ctx, q,
		a.ID, a.Email, a.Name, a.PasswordHash, string(a.Role), a.Verified, code, exp, createdAt,
	))
	if err != nil {
		return domain.Account{}, mapErr(err)
	}
	return ar.toDomain(), nil
}

// SetOTP replaces the pending code. A verified account is refused by the WHERE
// clause; the follow-up read tells that case apart from a missing account.
func (r *AccountRepo) SetOTP(ctx context.Context, id string, o domain.OTP) error {
	const q = `
UPDATE accounts
SET otp_code = $2,
    otp_expires_at = $3,
    updated_at = NOW()
WHERE id = $1 AND verified = FALSE;
`
	res, err := r.db.ExecContext(ctx, q, id, o.Code, o.ExpiresAt)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	acc, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if acc.Verified {
		return domain.ErrAlreadyVerified()
	}
	return domain.ErrAccountNotFound()
}

// ConsumeOTP verifies the account in one conditional statement, so two
// concurrent verifications of the same code cannot both succeed.
func (r *AccountRepo) ConsumeOTP(ctx context.Context, id, code string, now time.Time) (bool, error) {
	const q = `
UPDATE accounts
SET verified = TRUE,
    otp_code = NULL,
    otp_expires_at = NULL,
    updated_at = NOW()
WHERE id = $1
  AND verified = FALSE
  AND otp_code = $2
  AND otp_expires_at >= $3;
`
	res, err := r.db.ExecContext(ctx, q, id, code, now)
	if err != nil {
		return false, mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, domain.ErrStoreUnavailable(err)
	}
	return n == 1, nil
}

func (r *AccountRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if hash == "" {
		return domain.ErrMissingField("password_hash")
	}

	const q = `
UPDATE accounts
SET password_hash = $2,
    updated_at = NOW()
WHERE id = $1;
`
	return r.execOne(ctx, q, id, hash)
}

// UpdateEmail swaps the address only; verified and any pending code are untouched.
func (r *AccountRepo) UpdateEmail(ctx context.Context, id, email string) error {
	const q = `
UPDATE accounts
SET email = $2,
    updated_at = NOW()
WHERE id = $1;
`
	return r.execOne(ctx, q, id, email)
}

func (r *AccountRepo) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM accounts WHERE id = $1;`
	return r.execOne(ctx, q, id)
}

func (r *AccountRepo) DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `
DELETE FROM accounts
WHERE verified = FALSE
  AND created_at < $1;
`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.ErrStoreUnavailable(err)
	}
	return n, nil
}

// execOne runs a statement that must touch exactly one account.
func (r *AccountRepo) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return mapErr(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrAccountNotFound()
	}
	return nil
}
