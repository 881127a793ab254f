package auth

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// TokenStore keeps the access token in client-readable Storage and in a
// cookie of the same name. Every mutation writes both copies.
type TokenStore struct {
	mu         sync.Mutex
	storage    Storage
	cookies    CookieStore
	key        string
	expiration time.Duration
	secure     bool
}

// TokenStoreOption customizes TokenStore construction
type TokenStoreOption func(*TokenStore)

// WithTokenKey overrides the storage key and cookie name
func WithTokenKey(key string) TokenStoreOption {
	return func(ts *TokenStore) {
		if key != "" {
			ts.key = key
		}
	}
}

// WithTokenExpiration overrides the cookie lifetime
func WithTokenExpiration(d time.Duration) TokenStoreOption {
	return func(ts *TokenStore) {
		if d > 0 {
			ts.expiration = d
		}
	}
}

// WithSecureCookie marks the token cookie Secure
func WithSecureCookie(secure bool) TokenStoreOption {
	return func(ts *TokenStore) {
		ts.secure = secure
	}
}

// NewTokenStore wires storage and cookies. Nil collaborators fall back to
// MemoryStorage and an in-memory cookie jar for the default site.
func NewTokenStore(storage Storage, cookies CookieStore, opts ...TokenStoreOption) *TokenStore {
	ts := &TokenStore{
		storage:    storage,
		cookies:    cookies,
		key:        DefaultTokenKey,
		expiration: time.Duration(DefaultTokenExpiration) * time.Hour,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	if ts.storage == nil {
		ts.storage = NewMemoryStorage()
	}

	if ts.cookies == nil {
		jar, _ := NewJarCookieStore(nil, DefaultOptions().SiteURL)
		ts.cookies = jar
	}

	return ts
}

// NewTokenStoreFromConfig builds a TokenStore using the key and expiration
// from cfg
func NewTokenStoreFromConfig(cfg Config, storage Storage, cookies CookieStore, opts ...TokenStoreOption) *TokenStore {
	base := []TokenStoreOption{
		WithTokenKey(cfg.GetTokenKey()),
		WithTokenExpiration(time.Duration(cfg.GetTokenExpiration()) * time.Hour),
	}
	return NewTokenStore(storage, cookies, append(base, opts...)...)
}

// Key is the storage key and cookie name
func (ts *TokenStore) Key() string {
	return ts.key
}

// Get reads the token from client storage
func (ts *TokenStore) Get(ctx context.Context) (string, error) {
	token, ok, err := ts.storage.GetItem(ctx, ts.key)
	if err != nil {
		return "", withMetadata(ErrStorage, err, map[string]any{"op": "get"})
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// CookieValue reads the edge copy of the token
func (ts *TokenStore) CookieValue(ctx context.Context) (string, bool) {
	c, ok := ts.cookies.Cookie(ctx, ts.key)
	if !ok || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Set persists token to storage and cookie. If the cookie cannot be
// written the previous storage value is restored. An empty token clears.
func (ts *TokenStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return ts.Clear(ctx)
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	prev, hadPrev, err := ts.storage.GetItem(ctx, ts.key)
	if err != nil {
		return withMetadata(ErrStorage, err, map[string]any{"op": "set"})
	}

	if err := ts.storage.SetItem(ctx, ts.key, token); err != nil {
		return withMetadata(ErrStorage, err, map[string]any{"op": "set"})
	}

	if err := ts.cookies.SetCookie(ctx, ts.cookie(token)); err != nil {
		if hadPrev {
			_ = ts.storage.SetItem(ctx, ts.key, prev)
		} else {
			_ = ts.storage.RemoveItem(ctx, ts.key)
		}
		return withMetadata(ErrStorage, err, map[string]any{"op": "set_cookie"})
	}

	return nil
}

// Clear removes both copies. Safe to call when no token exists. If storage
// cannot be cleared the cookie is left alone so both copies still agree.
func (ts *TokenStore) Clear(ctx context.Context) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if err := ts.storage.RemoveItem(ctx, ts.key); err != nil {
		return withMetadata(ErrStorage, err, map[string]any{"op": "clear"})
	}

	if err := ts.cookies.SetCookie(ctx, ts.expiredCookie()); err != nil {
		return withMetadata(ErrStorage, err, map[string]any{"op": "clear_cookie"})
	}
	return nil
}

func (ts *TokenStore) cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     ts.key,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ts.expiration / time.Second),
		Expires:  time.Now().Add(ts.expiration),
		Secure:   ts.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (ts *TokenStore) expiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     ts.key,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   ts.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
