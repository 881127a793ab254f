package routeguard

import (
	"context"
	"errors"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup = "cookie:accessToken"
	// ErrMissingDecoder is the panic value when Config has no Decoder
	ErrMissingDecoder = errors.New("routeguard: Decoder is required")
)

// RoleHint mirrors the unverified role hint of the auth package without
// importing it
type RoleHint interface {
	RoleName() string
}

// RoleDecoder reads a role hint from a raw token. It must not be mistaken
// for token validation.
type RoleDecoder func(token string) (RoleHint, error)

// Logger mirrors the auth package logger
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Action is what the guard wants done with a navigation
type Action string

const (
	Allow    Action = "allow"
	Redirect Action = "redirect"
)

// Reason explains a Decision, handy for logs and tests
type Reason string

const (
	ReasonNotGuarded    Reason = "not_guarded"
	ReasonAuthForm      Reason = "auth_form"
	ReasonAuthenticated Reason = "already_authenticated"
	ReasonNoToken       Reason = "missing_token"
	ReasonBadToken      Reason = "undecodable_token"
	ReasonRoleMismatch  Reason = "role_mismatch"
	ReasonRoleMatch     Reason = "role_ok"
)

// Decision is the guard outcome for one navigation
type Decision struct {
	Action Action
	Target string
	Reason Reason
	Hint   RoleHint
}

type Config struct {
	// Filter skips the guard when it returns true
	Filter func(router.Context) bool
	// TokenLookup is a comma separated list of sources, e.g.
	// "cookie:accessToken,header:Authorization"
	TokenLookup string
	AuthScheme  string

	LoginPath            string
	RegisterPath         string
	DashboardPrefix      string
	DefaultDashboardPath string
	UnauthorizedPath     string
	// Roles are the path segments under DashboardPrefix that are role
	// dashboards
	Roles []string

	// Decoder is required
	Decoder RoleDecoder
	// ContextKey is the router locals key for the hint
	ContextKey string
	// ContextEnricher propagates the hint to the standard context
	ContextEnricher func(c context.Context, hint RoleHint) context.Context
	// SuccessHandler runs when navigation is allowed
	SuccessHandler router.HandlerFunc
	Logger         Logger
}

// GetDefaultConfig fills the zero fields of the first config
func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Decoder == nil {
		panic(ErrMissingDecoder)
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}

	if cfg.RegisterPath == "" {
		cfg.RegisterPath = "/register"
	}

	if cfg.DashboardPrefix == "" {
		cfg.DashboardPrefix = "/dashboard"
	}
	cfg.DashboardPrefix = "/" + strings.Trim(cfg.DashboardPrefix, "/")

	if cfg.DefaultDashboardPath == "" {
		cfg.DefaultDashboardPath = cfg.DashboardPrefix
	}

	if cfg.UnauthorizedPath == "" {
		cfg.UnauthorizedPath = "/unauthorized"
	}

	if len(cfg.Roles) == 0 {
		cfg.Roles = []string{"customer", "seller", "admin", "superAdmin"}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "role_hint"
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}

	return cfg
}

// Matches reports whether pathname is in the guarded route table: the
// login and register pages, the dashboard prefix and anything below it
func (cfg Config) Matches(pathname string) bool {
	pathname = cleanPath(pathname)
	if pathname == cfg.LoginPath || pathname == cfg.RegisterPath {
		return true
	}
	return cfg.underDashboard(pathname)
}

// Evaluate applies the guard rules to a token (empty when absent) and a
// request path. It never verifies the token signature.
func (cfg Config) Evaluate(token, pathname string) Decision {
	pathname = cleanPath(pathname)
	token = strings.TrimSpace(token)

	if pathname == cfg.LoginPath || pathname == cfg.RegisterPath {
		if token != "" {
			return Decision{Action: Redirect, Target: cfg.DefaultDashboardPath, Reason: ReasonAuthenticated}
		}
		return Decision{Action: Allow, Reason: ReasonAuthForm}
	}

	if !cfg.underDashboard(pathname) {
		return Decision{Action: Allow, Reason: ReasonNotGuarded}
	}

	if token == "" {
		return Decision{Action: Redirect, Target: cfg.LoginPath, Reason: ReasonNoToken}
	}

	hint, err := cfg.Decoder(token)
	if err != nil || hint == nil {
		cfg.Logger.Debug("route guard could not decode token for %s: %v", pathname, err)
		return Decision{Action: Redirect, Target: cfg.LoginPath, Reason: ReasonBadToken}
	}

	segment := cfg.dashboardSegment(pathname)
	if slices.Contains(cfg.Roles, segment) && segment != hint.RoleName() {
		return Decision{Action: Redirect, Target: cfg.UnauthorizedPath, Reason: ReasonRoleMismatch, Hint: hint}
	}

	return Decision{Action: Allow, Reason: ReasonRoleMatch, Hint: hint}
}

// RedirectStatus is 302 for safe methods and 303 otherwise
func RedirectStatus(method string) int {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		return http.StatusFound
	default:
		return http.StatusSeeOther
	}
}

func (cfg Config) underDashboard(pathname string) bool {
	return pathname == cfg.DashboardPrefix || strings.HasPrefix(pathname, cfg.DashboardPrefix+"/")
}

func (cfg Config) dashboardSegment(pathname string) string {
	rest := strings.TrimPrefix(pathname, cfg.DashboardPrefix)
	rest = strings.TrimPrefix(rest, "/")
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

func cleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	return path.Clean("/" + p)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
