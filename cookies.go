package auth

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	goerrors "github.com/goliatone/go-errors"
)

var _ CookieStore = &JarCookieStore{}

// PersistentCookieJar is a cookie jar whose writes can fail. JarCookieStore
// writes through SetCookiesContext when the jar has it, so a failed write
// reaches the TokenStore instead of being swallowed by http.CookieJar.
type PersistentCookieJar interface {
	http.CookieJar
	SetCookiesContext(ctx context.Context, u *url.URL, cookies []*http.Cookie) error
}

// JarCookieStore projects cookies into an http.CookieJar scoped to the
// storefront site. Sharing the jar with the API client's http.Client is
// what lets the edge copy of the token and the API's refresh cookie live
// side by side.
type JarCookieStore struct {
	jar  http.CookieJar
	site *url.URL
}

// NewJarCookieStore binds jar to siteURL. A nil jar gets an in-memory one.
func NewJarCookieStore(jar http.CookieJar, siteURL string) (*JarCookieStore, error) {
	site, err := url.Parse(siteURL)
	if err != nil || site.Host == "" {
		if err == nil {
			err = goerrors.New("site URL has no host", goerrors.CategoryBadInput)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid site URL").
			WithMetadata(map[string]any{"site_url": siteURL})
	}

	if jar == nil {
		if jar, err = cookiejar.New(nil); err != nil {
			return nil, err
		}
	}

	return &JarCookieStore{jar: jar, site: site}, nil
}

// Jar returns the underlying cookie jar
func (s *JarCookieStore) Jar() http.CookieJar {
	return s.jar
}

func (s *JarCookieStore) SetCookie(ctx context.Context, cookie *http.Cookie) error {
	if cookie == nil {
		return nil
	}
	if jar, ok := s.jar.(PersistentCookieJar); ok {
		return jar.SetCookiesContext(ctx, s.site, []*http.Cookie{cookie})
	}
	s.jar.SetCookies(s.site, []*http.Cookie{cookie})
	return nil
}

func (s *JarCookieStore) Cookie(_ context.Context, name string) (*http.Cookie, bool) {
	for _, c := range s.jar.Cookies(s.site) {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}
