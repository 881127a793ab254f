package bunstore

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-storefront-auth"
)

// CookieModel is one persisted cookie, keyed like a browser keys them
type CookieModel struct {
	bun.BaseModel `bun:"table:cookies"`

	Name     string     `bun:"name,pk"`
	Host     string     `bun:"host,pk"`
	Path     string     `bun:"path,pk"`
	Scheme   string     `bun:"scheme,notnull"`
	Domain   string     `bun:"domain"`
	Value    string     `bun:"value,notnull"`
	Expires  *time.Time `bun:"expires,nullzero"`
	Secure   bool       `bun:"secure,notnull"`
	HTTPOnly bool       `bun:"http_only,notnull"`
	SameSite int        `bun:"same_site,notnull"`
}

// Logger receives persistence failures, http.CookieJar has no error return
type Logger interface {
	Error(format string, args ...any)
}

var _ auth.PersistentCookieJar = (*CookieJar)(nil)

// CookieJar is an http.CookieJar that survives restarts. Matching rules
// come from net/http/cookiejar, rows only persist what it was given.
type CookieJar struct {
	mu     sync.Mutex
	db     *bun.DB
	inner  *cookiejar.Jar
	logger Logger
	now    func() time.Time
}

// NewCookieJar loads persisted, unexpired cookies into a fresh jar
func NewCookieJar(ctx context.Context, db *bun.DB, logger Logger) (*CookieJar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	j := &CookieJar{db: db, inner: inner, logger: logger, now: time.Now}
	if err := j.load(ctx); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *CookieJar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Cookies(u)
}

// SetCookies updates the in-memory jar even when persisting fails.
// Failures go to the logger.
func (j *CookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.inner.SetCookies(u, cookies)

	if err := j.persist(context.Background(), u, cookies); err != nil && j.logger != nil {
		j.logger.Error("failed to persist cookies for %s: %s", u.Host, err)
	}
}

// SetCookiesContext persists cookies first and only updates the jar once
// the rows are written, so a failed write leaves the jar unchanged
func (j *CookieJar) SetCookiesContext(ctx context.Context, u *url.URL, cookies []*http.Cookie) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.persist(ctx, u, cookies); err != nil {
		return err
	}
	j.inner.SetCookies(u, cookies)
	return nil
}

func (j *CookieJar) persist(ctx context.Context, u *url.URL, cookies []*http.Cookie) error {
	return j.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, c := range cookies {
			if c == nil {
				continue
			}
			model := j.model(u, c)
			var err error
			if j.expired(c) {
				err = j.delete(ctx, tx, model)
			} else {
				err = j.upsert(ctx, tx, model)
			}
			if err != nil {
				return fmt.Errorf("cookie %s: %w", c.Name, err)
			}
		}
		return nil
	})
}

func (j *CookieJar) load(ctx context.Context) error {
	var rows []CookieModel
	if err := j.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return err
	}

	now := j.now()
	for _, row := range rows {
		if row.Expires != nil && !row.Expires.After(now) {
			continue
		}
		u := &url.URL{Scheme: row.Scheme, Host: row.Host, Path: row.Path}
		c := &http.Cookie{
			Name:     row.Name,
			Value:    row.Value,
			Path:     row.Path,
			Domain:   row.Domain,
			Secure:   row.Secure,
			HttpOnly: row.HTTPOnly,
			SameSite: http.SameSite(row.SameSite),
		}
		if row.Expires != nil {
			c.Expires = *row.Expires
		}
		j.inner.SetCookies(u, []*http.Cookie{c})
	}
	return nil
}

func (j *CookieJar) model(u *url.URL, c *http.Cookie) *CookieModel {
	path := c.Path
	if path == "" {
		path = "/"
	}

	m := &CookieModel{
		Name:     c.Name,
		Host:     u.Host,
		Path:     path,
		Scheme:   u.Scheme,
		Domain:   strings.TrimPrefix(c.Domain, "."),
		Value:    c.Value,
		Secure:   c.Secure,
		HTTPOnly: c.HttpOnly,
		SameSite: int(c.SameSite),
	}

	switch {
	case c.MaxAge > 0:
		exp := j.now().Add(time.Duration(c.MaxAge) * time.Second)
		m.Expires = &exp
	case !c.Expires.IsZero():
		exp := c.Expires
		m.Expires = &exp
	}
	return m
}

func (j *CookieJar) expired(c *http.Cookie) bool {
	if c.MaxAge < 0 {
		return true
	}
	if c.MaxAge == 0 && !c.Expires.IsZero() && !c.Expires.After(j.now()) {
		return true
	}
	return false
}

func (j *CookieJar) upsert(ctx context.Context, db bun.IDB, m *CookieModel) error {
	_, err := db.NewInsert().
		Model(m).
		On("CONFLICT (name, host, path) DO UPDATE").
		Set("scheme = EXCLUDED.scheme").
		Set("domain = EXCLUDED.domain").
		Set("value = EXCLUDED.value").
		Set("expires = EXCLUDED.expires").
		Set("secure = EXCLUDED.secure").
		Set("http_only = EXCLUDED.http_only").
		Set("same_site = EXCLUDED.same_site").
		Exec(ctx)
	return err
}

func (j *CookieJar) delete(ctx context.Context, db bun.IDB, m *CookieModel) error {
	_, err := db.NewDelete().
		Model((*CookieModel)(nil)).
		Where("name = ? AND host = ? AND path = ?", m.Name, m.Host, m.Path).
		Exec(ctx)
	return err
}
