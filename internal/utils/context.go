package utils

import "context"

type contextKey string

const (
	UserIDKey      contextKey = "user_id"
	UserRoleKey    contextKey = "role"
	AccessTokenKey contextKey = "access_token"
)

type ctxKey string

const internalRequestKey ctxKey = "internal_request"

// WithInternalRequest marks calls made by the service itself rather than on
// behalf of a user.
func WithInternalRequest(ctx context.Context) context.Context {
	return context.WithValue(ctx, internalRequestKey, true)
}

func IsInternalRequest(ctx context.Context) bool {
	v, _ := ctx.Value(internalRequestKey).(bool)
	return v
}
