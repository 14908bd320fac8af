package auth

import (
	"context"
	"time"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

/*
AccountRepo
-----------
Persistence port for accounts.
Only describes WHAT the auth service needs, not HOW it's stored.
SetOTP and ConsumeOTP also satisfy otp.Store.
*/
type AccountRepo interface {
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	GetByID(ctx context.Context, id string) (domain.Account, error)
	Create(ctx context.Context, a domain.Account) (domain.Account, error)

	SetOTP(ctx context.Context, accountID string, otp domain.OTP) error
	// ConsumeOTP is one conditional update; false means nothing changed.
	ConsumeOTP(ctx context.Context, accountID, code string, now time.Time) (bool, error)

	UpdatePasswordHash(ctx context.Context, accountID, hash string) error
	// UpdateEmail changes the address only; Verified and OTP are left as they are.
	UpdateEmail(ctx context.Context, accountID, email string) error
	Delete(ctx context.Context, accountID string) error
	DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

/*
PasswordHasher
--------------
bcrypt behind a bounded pool. Verify returns false on mismatch and an error
only when the stored hash is corrupt.
*/
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, hash string) (bool, error)
}

/*
TokenIssuer
-----------
Signs and decodes access/refresh tokens. Decode never checks revocation.
*/
type TokenIssuer interface {
	IssueAccess(id domain.Identity) (string, error)
	IssueRefresh(id domain.Identity) (string, error)
	Decode(token string) (domain.TokenClaims, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

/*
Blacklist
---------
Server-side revocation. An error from Add means the revocation is not confirmed.
*/
type Blacklist interface {
	Add(ctx context.Context, token string, now time.Time) (bool, error)
	Contains(ctx context.Context, token string, now time.Time) (bool, error)
}

/*
Mailer
------
Fire-and-forget hand-off to the mail pipeline. Enqueue never blocks and never
fails the calling operation; delivery problems are the queue's concern.
*/
type Mailer interface {
	Enqueue(req domain.MailRequest)
}

/*
Auditor
-------
Structured audit trail for security relevant actions.
*/
type Auditor interface {
	Record(ctx context.Context, action string, fields map[string]string)
}
