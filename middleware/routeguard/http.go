package routeguard

import (
	"net/http"
	"strings"
)

// Handler guards next for plain net/http servers
func Handler(config Config, next http.Handler) http.Handler {
	cfg := GetDefaultConfig(config)
	sources := parseLookup(cfg.TokenLookup)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Matches(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		decision := cfg.Evaluate(tokenFromRequest(r, sources, cfg.AuthScheme), r.URL.Path)
		if decision.Action == Redirect {
			cfg.Logger.Debug("route guard redirect %s -> %s (%s)", r.URL.Path, decision.Target, decision.Reason)
			http.Redirect(w, r, decision.Target, RedirectStatus(r.Method))
			return
		}

		if decision.Hint != nil && cfg.ContextEnricher != nil {
			r = r.WithContext(cfg.ContextEnricher(r.Context(), decision.Hint))
		}

		next.ServeHTTP(w, r)
	})
}

func tokenFromRequest(r *http.Request, sources []lookupSource, authScheme string) string {
	for _, src := range sources {
		var raw string
		switch src.kind {
		case "cookie":
			if c, err := r.Cookie(src.name); err == nil {
				raw = strings.TrimSpace(c.Value)
			}
		case "header":
			raw = stripScheme(r.Header.Get(src.name), authScheme)
		case "query":
			raw = strings.TrimSpace(r.URL.Query().Get(src.name))
		}
		if raw != "" {
			return raw
		}
	}
	return ""
}
