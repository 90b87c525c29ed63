package middlewares

import (
	"context"

	"github.com/sbilibin2017/linkbio-auth/internal/models"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	userKey
)

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, user *models.PublicUser) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user placed by AuthMiddleware, or nil.
func UserFromContext(ctx context.Context) *models.PublicUser {
	user, _ := ctx.Value(userKey).(*models.PublicUser)
	return user
}

// RequestIDFromContext returns the id assigned by LoggingMiddleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
