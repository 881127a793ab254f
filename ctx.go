package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var roleHintCtxKey = &contextKey{"role_hint"}

type contextKey struct {
	name string
}

// RoleHintLocalsKey is where the edge guard stores the hint in router locals
const RoleHintLocalsKey = "role_hint"

// WithRoleHint sets the unverified role hint in the given context
func WithRoleHint(ctx context.Context, hint UnverifiedRoleHint) context.Context {
	return context.WithValue(ctx, roleHintCtxKey, hint)
}

// RoleHintFromContext finds the unverified role hint set by the edge guard
func RoleHintFromContext(ctx context.Context) (UnverifiedRoleHint, bool) {
	raw, ok := ctx.Value(roleHintCtxKey).(UnverifiedRoleHint)
	return raw, ok
}

// RoleHintFromRouter reads the hint from router locals
func RoleHintFromRouter(ctx router.Context) (UnverifiedRoleHint, bool) {
	raw := ctx.Locals(RoleHintLocalsKey)
	if raw == nil {
		return UnverifiedRoleHint{}, false
	}
	hint, ok := raw.(UnverifiedRoleHint)
	return hint, ok
}
