package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
	pkgctx "github.com/worketyamo/workplace/services/auth-service/internal/pkg/context"
)

// Authorizer decodes an access token and checks it against the blacklist.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (domain.TokenClaims, error)
}

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

// Auth verifies Authorization: Bearer <access_token> and injects the claims
// and the raw token into the request context.
func Auth(authz Authorizer, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			claims, err := authz.Authorize(r.Context(), raw)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			ctx := WithClaims(r.Context(), claims, raw)
			ctx = pkgctx.WithAccountID(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", domain.ErrTokenMissing()
	}

	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", domain.ErrTokenInvalid()
	}

	raw := strings.TrimSpace(parts[1])
	if raw == "" {
		return "", domain.ErrTokenInvalid()
	}
	return raw, nil
}
