package dto

import (
	"time"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

type RegisterResponse struct {
	AccountID string `json:"account_id"`
	Status    string `json:"status"` // "verification_pending"
}

type StatusResponse struct {
	Status string `json:"status"`
}

// TokensView is the standard access token payload.
// (Refresh token is stored in HttpOnly cookie, so we never return it in JSON.)
type TokensView struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // "Bearer"
	ExpiresIn   int64  `json:"expires_in"` // seconds
}

// AccountView is the public account payload. Hash and pending code never leave the service.
type AccountView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

type MeData struct {
	Account AccountView `json:"account"`
}

func NewAccountView(a domain.Account) AccountView {
	return AccountView{
		ID:        a.ID,
		Email:     a.Email,
		Name:      a.DisplayName(),
		Role:      string(a.Role),
		Verified:  a.Verified,
		CreatedAt: a.CreatedAt,
	}
}
