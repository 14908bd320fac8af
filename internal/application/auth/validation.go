package auth

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

const (
	MinPasswordLength = 12
	// bcrypt ignores everything past 72 bytes, so longer inputs are refused.
	MaxPasswordBytes = 72
)

var validate = validator.New()

func validateEmail(email string) error {
	if email == "" {
		return domain.ErrMissingField("email")
	}
	if err := validate.Var(email, "email,max=254"); err != nil {
		return domain.ErrInvalidField("email", "malformed")
	}
	return nil
}

func validatePassword(field, pw string) error {
	if pw == "" {
		return domain.ErrMissingField(field)
	}
	if strings.TrimSpace(pw) == "" {
		return domain.ErrWeakPassword("blank")
	}
	if len(pw) < MinPasswordLength {
		return domain.ErrWeakPassword("min length 12")
	}
	if len(pw) > MaxPasswordBytes {
		return domain.ErrWeakPassword("max length 72 bytes")
	}
	return nil
}
