// Package context carries request-scoped values shared by transport and logging.
package context

import "context"

type contextKey int

const (
	requestIDKey contextKey = iota
	accountIDKey
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns "" when ctx carries no id.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithAccountID tags ctx with the authenticated account so logs can correlate it.
func WithAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

func GetAccountID(ctx context.Context) string {
	return stringValue(ctx, accountIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
