package auth

import (
	"context"

	"github.com/ayush/taskboard/backend/internal/models"
)

type contextKey struct{}

// WithUser attaches the resolved identity to the request context.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFrom returns the identity attached by the auth middleware, if any.
func UserFrom(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(contextKey{}).(*models.User)
	return user, ok
}
