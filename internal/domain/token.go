package domain

import "time"

type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Identity is what gets embedded into issued tokens.
type Identity struct {
	AccountID string
	Role      Role
}

// TokenClaims is the decoded payload of a signed token. Claims are never mutated;
// revocation is tracked by the blacklist.
type TokenClaims struct {
	ID        string
	Subject   string
	Role      Role
	Type      TokenType
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (c TokenClaims) Identity() Identity {
	return Identity{AccountID: c.Subject, Role: c.Role}
}

// SessionTokens are the tokens a caller currently holds. Either may be empty.
type SessionTokens struct {
	Access  string
	Refresh string
}
