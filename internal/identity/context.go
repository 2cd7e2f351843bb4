package identity

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	userIDKey ctxKey = "user_id"
	tokenKey  ctxKey = "token"
)

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFrom returns the authenticated user id, if any.
func UserIDFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// WithToken returns a context carrying the raw bearer token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

func TokenFrom(ctx context.Context) string {
	s, _ := ctx.Value(tokenKey).(string)
	return s
}
