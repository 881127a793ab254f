package auth_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	auth "github.com/goliatone/go-storefront-auth"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSiteURL = "http://localhost:3000"

// MockStorage is a testify mock of auth.Storage
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStorage) SetItem(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockStorage) RemoveItem(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockCookieStore is a testify mock of auth.CookieStore
type MockCookieStore struct {
	mock.Mock
}

func (m *MockCookieStore) SetCookie(ctx context.Context, cookie *http.Cookie) error {
	args := m.Called(ctx, cookie)
	return args.Error(0)
}

func (m *MockCookieStore) Cookie(ctx context.Context, name string) (*http.Cookie, bool) {
	args := m.Called(ctx, name)
	c, _ := args.Get(0).(*http.Cookie)
	return c, args.Bool(1)
}

// recordingCookies keeps the last cookie written per name
type recordingCookies struct {
	mu      sync.Mutex
	cookies map[string]*http.Cookie
}

func newRecordingCookies() *recordingCookies {
	return &recordingCookies{cookies: map[string]*http.Cookie{}}
}

func (r *recordingCookies) SetCookie(_ context.Context, c *http.Cookie) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.cookies[c.Name] = &cp
	return nil
}

func (r *recordingCookies) Cookie(_ context.Context, name string) (*http.Cookie, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cookies[name]
	if !ok || c.MaxAge < 0 {
		return nil, false
	}
	return c, true
}

func (r *recordingCookies) last(name string) *http.Cookie {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cookies[name]
}

func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	raw, err := json.Marshal(claims)
	require.NoError(t, err)
	return "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString(raw) + ".c2ln"
}

func newTokens(t *testing.T) *auth.TokenStore {
	t.Helper()
	cookies, err := auth.NewJarCookieStore(nil, testSiteURL)
	require.NoError(t, err)
	return auth.NewTokenStore(auth.NewMemoryStorage(), cookies)
}

func newAPI(t *testing.T, h http.Handler, opts ...auth.ClientOption) (*auth.Client, *auth.TokenStore, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	tokens := newTokens(t)
	base := []auth.ClientOption{auth.WithClientLogger(auth.NopLogger())}
	client := auth.NewClient(srv.URL, tokens, append(base, opts...)...)
	return client, tokens, srv
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func bearer(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
