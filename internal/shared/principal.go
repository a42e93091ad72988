package shared

import (
	"context"

	"github.com/google/uuid"
)

// Principal is the authenticated identity supplied by the transport layer.
// The domain services trust it and never re-authenticate.
type Principal struct {
	UserID       uuid.UUID
	Username     string
	Capabilities []string
}

// HasCapability reports whether the principal carries the named capability.
func (p Principal) HasCapability(name string) bool {
	for _, c := range p.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
