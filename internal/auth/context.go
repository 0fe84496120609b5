// internal/auth/context.go
//
// Authenticated principal carried in the request context.
//
// Usage
// -----
//     // The gate attaches the verified principal.
//     ctx = auth.WithPrincipal(ctx, p)
//
//     // Downstream code retrieves it.
//     p, ok := auth.FromContext(ctx)
//     id, ok := auth.UserID(ctx)
//
// Notes
// -----
// • Token is the raw bearer so backend calls can act as the same admin.

package auth

import (
	"context"
	"slices"
)

// Principal is the verified identity behind a request.
type Principal struct {
	UserID int64
	Email  string
	Roles  []string
	Token  string
}

// HasRole reports whether p carries role.
func (p *Principal) HasRole(role string) bool {
	return p != nil && slices.Contains(p.Roles, role)
}

// principalKey is unexported to avoid context-key collisions.
type principalKey struct{}

// WithPrincipal returns a new context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal set by WithPrincipal.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// UserID extracts the user ID from ctx.  It returns (0, false) if no
// principal is set.
func UserID(ctx context.Context) (int64, bool) {
	p, ok := FromContext(ctx)
	if !ok {
		return 0, false
	}
	return p.UserID, true
}
