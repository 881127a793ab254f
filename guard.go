package auth

import (
	"context"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-storefront-auth/middleware/routeguard"
)

// RouteGuardConfig maps cfg onto the edge guard configuration, wired to
// decode UnverifiedRoleHint and to carry it in the request context
func RouteGuardConfig(cfg Config, logger Logger) routeguard.Config {
	if logger == nil {
		logger = NopLogger()
	}
	return routeguard.Config{
		TokenLookup:          "cookie:" + cfg.GetTokenKey(),
		LoginPath:            cfg.GetLoginPath(),
		RegisterPath:         cfg.GetRegisterPath(),
		DashboardPrefix:      cfg.GetDashboardPrefix(),
		DefaultDashboardPath: cfg.GetDefaultDashboardPath(),
		UnauthorizedPath:     cfg.GetUnauthorizedPath(),
		Roles:                RoleNames(),
		Decoder:              decodeRouteHint,
		ContextKey:           RoleHintLocalsKey,
		ContextEnricher:      enrichRouteHint,
		Logger:               logger,
	}
}

// NewRouteGuard returns the edge guard as go-router middleware
func NewRouteGuard(cfg Config, logger Logger) router.MiddlewareFunc {
	return routeguard.New(RouteGuardConfig(cfg, logger))
}

func decodeRouteHint(token string) (routeguard.RoleHint, error) {
	hint, err := DecodeUnverifiedRoleHint(token)
	if err != nil {
		return nil, err
	}
	return hint, nil
}

func enrichRouteHint(ctx context.Context, hint routeguard.RoleHint) context.Context {
	if h, ok := hint.(UnverifiedRoleHint); ok {
		return WithRoleHint(ctx, h)
	}
	return ctx
}
