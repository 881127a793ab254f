package config

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	auth "github.com/goliatone/go-storefront-auth"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "STOREFRONT"

// LegacyAPIURLEnv is the variable the storefront frontend reads the API
// base URL from, honoured when STOREFRONT_AUTH_API_URL is unset
const LegacyAPIURLEnv = "NEXT_PUBLIC_API_URL"

// Config holds the settings of the storefront binaries
type Config struct {
	Auth     auth.Options   `mapstructure:"auth"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// flagKeys maps pflag names onto config keys
var flagKeys = map[string]string{
	"api-url":      "auth.api_url",
	"site-url":     "auth.site_url",
	"token-key":    "auth.token_key",
	"db":           "database.dsn",
	"log-level":    "log.level",
	"dev":          "log.development",
	"addr":         "server.addr",
	"config":       "",
	"token-expire": "auth.token_expiration",
}

// Flags registers the flags Load understands on fs
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (yaml, json or toml)")
	fs.String("api-url", "", "storefront API base URL")
	fs.String("site-url", "", "storefront site URL the token cookie is scoped to")
	fs.String("token-key", "", "storage key and cookie name of the access token")
	fs.Int("token-expire", 0, "token cookie lifetime in hours")
	fs.String("db", "", "sqlite DSN for persisted storage and cookies")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.Bool("dev", false, "development logging")
}

// Load reads defaults, an optional config file, STOREFRONT_ environment
// variables and flags, in increasing precedence
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("auth.api_url", EnvPrefix+"_AUTH_API_URL", LegacyAPIURLEnv); err != nil {
		return nil, err
	}

	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		}

		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || key == "" {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	cfg.Auth = cfg.Auth.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c.Auth,
		validation.Field(&c.Auth.APIBaseURL, validation.Required, is.URL),
		validation.Field(&c.Auth.SiteURL, validation.Required, is.URL),
		validation.Field(&c.Auth.TokenExpiration, validation.Min(1)),
		validation.Field(&c.Auth.DashboardPrefix, validation.By(absolutePath)),
		validation.Field(&c.Auth.LoginPath, validation.By(absolutePath)),
		validation.Field(&c.Auth.RegisterPath, validation.By(absolutePath)),
		validation.Field(&c.Auth.UnauthorizedPath, validation.By(absolutePath)),
	)
}

func setDefaults(v *viper.Viper) {
	def := auth.DefaultOptions()
	v.SetDefault("auth.api_url", def.APIBaseURL)
	v.SetDefault("auth.site_url", def.SiteURL)
	v.SetDefault("auth.token_key", def.TokenKey)
	v.SetDefault("auth.token_expiration", def.TokenExpiration)
	v.SetDefault("auth.refresh_path", def.RefreshPath)
	v.SetDefault("auth.login_path", def.LoginPath)
	v.SetDefault("auth.register_path", def.RegisterPath)
	v.SetDefault("auth.dashboard_prefix", def.DashboardPrefix)
	v.SetDefault("auth.default_dashboard_path", def.DefaultDashboardPath)
	v.SetDefault("auth.unauthorized_path", def.UnauthorizedPath)

	v.SetDefault("database.dsn", "file:storefront.db?cache=shared")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("server.addr", ":3000")
}

func absolutePath(value interface{}) error {
	s, _ := value.(string)
	if !strings.HasPrefix(s, "/") {
		return errors.New("must start with /")
	}
	return nil
}
