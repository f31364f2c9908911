package auth

import (
	"context"

	"github.com/Owais-Raja/Optima-IDP-sub001/internal/account"
)

// Principal is the explicit authenticated identity attached to a request
// after access-token verification. It is a value, not a mutable request
// attachment, and carries everything downstream authorization needs.
type Principal struct {
	AccountID string
	Role      account.Role
	Company   string
}

// HasRole reports whether the principal's role is in the allowed set.
func (p Principal) HasRole(roles ...account.Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

type principalContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	if !ok || p.AccountID == "" {
		return Principal{}, false
	}
	return p, true
}
