// ABOUTME: Request context helpers carrying the signed-in identity through handlers
// ABOUTME: The console tags its page logs with the identity RequireSession attaches

package auth

import (
	"context"

	"github.com/2389/hris-console/internal/session"
)

// identityContextKey is the key type for storing the identity in context.Context.
type identityContextKey struct{}

// WithIdentity returns a new context with the identity attached.
func WithIdentity(ctx context.Context, id *session.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext retrieves the identity from the context, returning nil if not present.
func IdentityFromContext(ctx context.Context) *session.Identity {
	id, _ := ctx.Value(identityContextKey{}).(*session.Identity)
	return id
}
