// Package auth authenticates marketplace users (identity tokens) and operators (API keys).
package auth

import (
	"context"

	"github.com/campuskart/campuskart/internal/model"
)

type contextKey string

const (
	authContextKey     contextKey = "auth_context"
	identityContextKey contextKey = "identity"
)

// ContextWithAuth adds an operator AuthContext to the context.
func ContextWithAuth(ctx context.Context, auth *model.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, auth)
}

// AuthFromContext retrieves the operator AuthContext, or nil.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	auth, _ := ctx.Value(authContextKey).(*model.AuthContext)
	return auth
}

// KeyIDFromContext returns the operator key ID, or "" when unauthenticated.
func KeyIDFromContext(ctx context.Context) string {
	if auth := AuthFromContext(ctx); auth != nil {
		return auth.KeyID
	}
	return ""
}

// ContextWithIdentity adds the caller's verified identity to the context.
func ContextWithIdentity(ctx context.Context, id *model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext retrieves the caller's identity, or nil.
func IdentityFromContext(ctx context.Context) *model.Identity {
	id, _ := ctx.Value(identityContextKey).(*model.Identity)
	return id
}

// MustIdentityFromContext panics when the identity middleware has not run.
func MustIdentityFromContext(ctx context.Context) *model.Identity {
	id := IdentityFromContext(ctx)
	if id == nil {
		panic("identity not found - ensure identity middleware is applied")
	}
	return id
}

// UserIDFromContext returns the caller's user ID, or "" when unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.UserID
	}
	return ""
}
