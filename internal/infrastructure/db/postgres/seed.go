package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

type SeederHasher interface {
	Hash(ctx context.Context, password string) (string, error)
}

type SeederRepo interface {
	Create(ctx context.Context, a domain.Account) (domain.Account, error)
}

type AdminSeed struct {
	Email    string
	Password string
	Name     string
}

// SeedAdmin creates a verified admin account. It is restart safe: an existing
// account with the same email is left untouched.
func SeedAdmin(ctx context.Context, repo SeederRepo, hasher SeederHasher, seed AdminSeed, lg zerolog.Logger) error {
	if seed.Email == "" || seed.Password == "" {
		return nil
	}

	hash, err := hasher.Hash(ctx, seed.Password)
	if err != nil {
		return err
	}

	_, err = repo.Create(ctx, domain.Account{
		ID:           uuid.NewString(),
		Email:        seed.Email,
		Name:         seed.Name,
		PasswordHash: hash,
		Verified:     true,
		Role:         domain.RoleAdmin,
	})
	if domain.Is(err, domain.CodeEmailAlreadyExists) {
		lg.Debug().Msg("admin account already present")
		return nil
	}
	if err != nil {
		return err
	}

	lg.Info().Msg("admin account seeded")
	return nil
}
