package domain

import (
	"strings"
	"time"
)

// OTP is a pending one-time code. The boundary instant ExpiresAt is still valid.
type OTP struct {
	Code      string
	ExpiresAt time.Time
}

// Expired reports whether the code is past its deadline at now.
func (o OTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// Account is the identity record. A verified account never carries an OTP.
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	OTP          *OTP
	Verified     bool
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a Account) Identity() Identity {
	return Identity{AccountID: a.ID, Role: a.Role}
}

// DisplayName falls back to the local part of the email.
func (a Account) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	local, _, _ := strings.Cut(a.Email, "@")
	return local
}

// NormalizeEmail trims surrounding whitespace. Lookup stays case-sensitive.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
