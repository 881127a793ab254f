package routeguard

import (
	"strings"

	"github.com/goliatone/go-router"
)

// New returns go-router middleware that redirects navigations the guard
// rejects and stores the role hint for the ones it allows
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		extractors := GetExtractors(cfg.TokenLookup, cfg.AuthScheme)

		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			// decoded path, the one the router dispatches on
			pathname := ctx.Path()
			if !cfg.Matches(pathname) {
				return ctx.Next()
			}

			token := ExtractRawTokenFromContext(ctx, extractors)
			decision := cfg.Evaluate(token, pathname)

			if decision.Action == Redirect {
				cfg.Logger.Debug("route guard redirect %s -> %s (%s)", pathname, decision.Target, decision.Reason)
				return ctx.Redirect(decision.Target, RedirectStatus(ctx.Method()))
			}

			if decision.Hint != nil {
				ctx.Locals(cfg.ContextKey, decision.Hint)
				if cfg.ContextEnricher != nil {
					ctx.SetContext(cfg.ContextEnricher(ctx.Context(), decision.Hint))
				}
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

// TokenExtractor reads a raw token from a router context
type TokenExtractor func(c router.Context) string

// ExtractRawTokenFromContext returns the first non empty token
func ExtractRawTokenFromContext(ctx router.Context, extractors []TokenExtractor) string {
	for _, extractor := range extractors {
		if raw := extractor(ctx); raw != "" {
			return raw
		}
	}
	return ""
}

// GetExtractors parses a lookup such as "cookie:accessToken,header:Authorization"
func GetExtractors(tokenLookup string, authScheme string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)
	for _, src := range parseLookup(tokenLookup) {
		switch src.kind {
		case "cookie":
			name := src.name
			extractors = append(extractors, func(c router.Context) string {
				return strings.TrimSpace(c.Cookies(name))
			})
		case "header":
			name := src.name
			extractors = append(extractors, func(c router.Context) string {
				return stripScheme(c.GetString(name, ""), authScheme)
			})
		case "query":
			name := src.name
			extractors = append(extractors, func(c router.Context) string {
				return strings.TrimSpace(c.Query(name, ""))
			})
		}
	}
	return extractors
}

type lookupSource struct {
	kind string
	name string
}

func parseLookup(tokenLookup string) []lookupSource {
	out := []lookupSource{}
	for _, root := range strings.Split(tokenLookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(root), ":", 2)
		if len(parts) != 2 {
			continue
		}
		kind, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if kind == "" || name == "" {
			continue
		}
		out = append(out, lookupSource{kind: kind, name: name})
	}
	return out
}

func stripScheme(value, scheme string) string {
	value = strings.TrimSpace(value)
	l := len(scheme)
	if l == 0 || len(value) <= l+1 || !strings.EqualFold(value[:l], scheme) {
		return ""
	}
	return strings.TrimSpace(value[l:])
}
