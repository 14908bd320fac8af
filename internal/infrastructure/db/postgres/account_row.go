package postgres

import (
	"database/sql"
	"time"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

const accountColumns = `id, email, name, password_hash, role, verified, otp_code, otp_expires_at, created_at, updated_at`

type accountRow struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         string
	Verified     bool
	OTPCode      sql.NullString
	OTPExpiresAt sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (accountRow, error) {
	var ar accountRow
	err := row.Scan(
		&ar.ID,
		&ar.Email,
		&ar.Name,
		&ar.PasswordHash,
		&ar.Role,
		&ar.Verified,
		&ar.OTPCode,
		&ar.OTPExpiresAt,
		&ar.CreatedAt,
		&ar.UpdatedAt,
	)
	return ar, err
}

func (ar accountRow) toDomain() domain.Account {
	a := domain.Account{
		ID:           ar.ID,
		Email:        ar.Email,
		Name:         ar.Name,
		PasswordHash: ar.PasswordHash,
		Role:         domain.Role(ar.Role),
		Verified:     ar.Verified,
		CreatedAt:    ar.CreatedAt,
		UpdatedAt:    ar.UpdatedAt,
	}
	if ar.OTPCode.Valid && ar.OTPExpiresAt.Valid {
		a.OTP = &domain.OTP{Code: ar.OTPCode.String, ExpiresAt: ar.OTPExpiresAt.Time}
	}
	return a
}

func otpArgs(o *domain.OTP) (sql.NullString, sql.NullTime) {
	if o == nil {
		return sql.NullString{}, sql.NullTime{}
	}
	return sql.NullString{String: o.Code, Valid: true}, sql.NullTime{Time: o.ExpiresAt, Valid: true}
}
