package httpx

import (
	"context"

	"github.com/glasskite/darkroom/internal/domain/model"
)

type contextKey string

const authContextKey contextKey = "auth"

// SetAuthContext attaches the resolved identity to the request context.
func SetAuthContext(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

// GetAuthContext returns the identity attached by RequireAPIKey, or nil when
// the request did not pass through it.
func GetAuthContext(ctx context.Context) *model.AuthContext {
	auth, _ := ctx.Value(authContextKey).(*model.AuthContext)
	return auth
}
