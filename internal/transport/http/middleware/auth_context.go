package middleware

import (
	"context"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

type ctxKey string

const (
	ctxClaims      ctxKey = "claims"
	ctxAccessToken ctxKey = "access_token"
)

func WithClaims(ctx context.Context, claims domain.TokenClaims, accessToken string) context.Context {
	ctx = context.WithValue(ctx, ctxClaims, claims)
	ctx = context.WithValue(ctx, ctxAccessToken, accessToken)
	return ctx
}

func ClaimsFromContext(ctx context.Context) (domain.TokenClaims, bool) {
	c, ok := ctx.Value(ctxClaims).(domain.TokenClaims)
	return c, ok && c.Subject != ""
}

// AccessTokenFromContext returns the bearer token the request was authorized with.
func AccessTokenFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxAccessToken).(string)
	return v
}
