package auth

import "strings"

const (
	// DefaultTokenKey names both the storage entry and the cookie
	DefaultTokenKey = "accessToken"
	// RefreshTokenCookie is set http-only by the API and never read here
	RefreshTokenCookie = "refreshToken"
	// DefaultTokenExpiration in hours for the token cookie
	DefaultTokenExpiration = 24
)

// REST endpoints consumed by the session layer
const (
	PathRegister       = "/auth/register"
	PathLogin          = "/auth/login"
	PathCreateUser     = "/auth/create-user"
	PathMe             = "/auth/me"
	PathRefreshToken   = "/auth/refresh-token"
	PathLogout         = "/auth/logout"
	PathUpdateProfile  = "/auth/update-profile"
	PathChangePassword = "/auth/change-password"
	PathResetPassword  = "/auth/reset-password"
)

var _ Config = Options{}

// Options is the default Config implementation
type Options struct {
	APIBaseURL           string `mapstructure:"api_url" json:"api_url"`
	SiteURL              string `mapstructure:"site_url" json:"site_url"`
	TokenKey             string `mapstructure:"token_key" json:"token_key"`
	TokenExpiration      int    `mapstructure:"token_expiration" json:"token_expiration"`
	RefreshPath          string `mapstructure:"refresh_path" json:"refresh_path"`
	LoginPath            string `mapstructure:"login_path" json:"login_path"`
	RegisterPath         string `mapstructure:"register_path" json:"register_path"`
	DashboardPrefix      string `mapstructure:"dashboard_prefix" json:"dashboard_prefix"`
	DefaultDashboardPath string `mapstructure:"default_dashboard_path" json:"default_dashboard_path"`
	UnauthorizedPath     string `mapstructure:"unauthorized_path" json:"unauthorized_path"`
}

// DefaultOptions returns the route table and token naming the storefront uses
func DefaultOptions() Options {
	return Options{
		APIBaseURL:           "http://localhost:5000/api",
		SiteURL:              "http://localhost:3000",
		TokenKey:             DefaultTokenKey,
		TokenExpiration:      DefaultTokenExpiration,
		RefreshPath:          PathRefreshToken,
		LoginPath:            "/login",
		RegisterPath:         "/register",
		DashboardPrefix:      DashboardPrefix,
		DefaultDashboardPath: DashboardPrefix,
		UnauthorizedPath:     "/unauthorized",
	}
}

// WithDefaults fills zero fields from DefaultOptions
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if strings.TrimSpace(o.APIBaseURL) == "" {
		o.APIBaseURL = def.APIBaseURL
	}
	if strings.TrimSpace(o.SiteURL) == "" {
		o.SiteURL = def.SiteURL
	}
	if o.TokenKey == "" {
		o.TokenKey = def.TokenKey
	}
	if o.TokenExpiration <= 0 {
		o.TokenExpiration = def.TokenExpiration
	}
	if o.RefreshPath == "" {
		o.RefreshPath = def.RefreshPath
	}
	if o.LoginPath == "" {
		o.LoginPath = def.LoginPath
	}
	if o.RegisterPath == "" {
		o.RegisterPath = def.RegisterPath
	}
	if o.DashboardPrefix == "" {
		o.DashboardPrefix = def.DashboardPrefix
	}
	if o.DefaultDashboardPath == "" {
		o.DefaultDashboardPath = o.DashboardPrefix
	}
	if o.UnauthorizedPath == "" {
		o.UnauthorizedPath = def.UnauthorizedPath
	}
	return o
}

func (o Options) GetAPIBaseURL() string           { return o.APIBaseURL }
func (o Options) GetSiteURL() string              { return o.SiteURL }
func (o Options) GetTokenKey() string             { return o.TokenKey }
func (o Options) GetTokenExpiration() int         { return o.TokenExpiration }
func (o Options) GetRefreshPath() string          { return o.RefreshPath }
func (o Options) GetLoginPath() string            { return o.LoginPath }
func (o Options) GetRegisterPath() string         { return o.RegisterPath }
func (o Options) GetDashboardPrefix() string      { return o.DashboardPrefix }
func (o Options) GetDefaultDashboardPath() string { return o.DefaultDashboardPath }
func (o Options) GetUnauthorizedPath() string     { return o.UnauthorizedPath }
