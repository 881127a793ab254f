package auth

import (
	"context"
	"fmt"
	"net/http"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds session and routing options
type Config interface {
	GetAPIBaseURL() string
	GetSiteURL() string
	GetTokenKey() string
	GetTokenExpiration() int
	GetRefreshPath() string
	GetLoginPath() string
	GetRegisterPath() string
	GetDashboardPrefix() string
	GetDefaultDashboardPath() string
	GetUnauthorizedPath() string
}

// Storage is the client-readable key/value store that holds the access token
type Storage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// CookieStore holds the cookie projection of the access token that edge
// middleware reads
type CookieStore interface {
	SetCookie(ctx context.Context, cookie *http.Cookie) error
	Cookie(ctx context.Context, name string) (*http.Cookie, bool)
}

// SessionReader exposes published session snapshots
type SessionReader interface {
	State() Session
	Subscribe(fn func(Session)) func()
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type nopLogger struct{}

func (nopLogger) Error(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}

// NopLogger discards every message
func NopLogger() Logger {
	return nopLogger{}
}
