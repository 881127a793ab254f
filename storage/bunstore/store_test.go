package bunstore_test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-storefront-auth"
	"github.com/goliatone/go-storefront-auth/storage/bunstore"
)

func setupDB(t *testing.T) *bun.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := bunstore.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, bunstore.Migrate(context.Background(), db))
	return db
}

type errLogger struct {
	lines []string
}

func (l *errLogger) Error(format string, args ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := bunstore.NewStore(setupDB(t))

	_, ok, err := store.GetItem(ctx, "accessToken")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetItem(ctx, "accessToken", "first"))
	require.NoError(t, store.SetItem(ctx, "accessToken", "second"))

	value, ok, err := store.GetItem(ctx, "accessToken")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", value)

	require.NoError(t, store.RemoveItem(ctx, "accessToken"))
	require.NoError(t, store.RemoveItem(ctx, "accessToken"))

	_, ok, err = store.GetItem(ctx, "accessToken")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := setupDB(t)
	assert.NoError(t, bunstore.Migrate(context.Background(), db))
}

func TestCookieJarSurvivesReload(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	logger := &errLogger{}

	api, _ := url.Parse("http://localhost:5000/api/auth/login")
	jar, err := bunstore.NewCookieJar(ctx, db, logger)
	require.NoError(t, err)

	jar.SetCookies(api, []*http.Cookie{
		{Name: "refreshToken", Value: "opaque", Path: "/", HttpOnly: true, MaxAge: 3600},
		{Name: "flash", Value: "gone", Path: "/", Expires: time.Now().Add(-time.Hour)},
	})
	assert.Empty(t, logger.lines)

	reloaded, err := bunstore.NewCookieJar(ctx, db, logger)
	require.NoError(t, err)

	refresh, _ := url.Parse("http://localhost:5000/api/auth/refresh-token")
	cookies := reloaded.Cookies(refresh)
	require.Len(t, cookies, 1)
	assert.Equal(t, "refreshToken", cookies[0].Name)
	assert.Equal(t, "opaque", cookies[0].Value)

	reloaded.SetCookies(api, []*http.Cookie{{Name: "refreshToken", Path: "/", MaxAge: -1}})
	assert.Empty(t, reloaded.Cookies(refresh))

	again, err := bunstore.NewCookieJar(ctx, db, logger)
	require.NoError(t, err)
	assert.Empty(t, again.Cookies(refresh))
}

func TestTokenStoreOnBunStorage(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)

	jar, err := bunstore.NewCookieJar(ctx, db, nil)
	require.NoError(t, err)
	cookies, err := auth.NewJarCookieStore(jar, "http://localhost:3000")
	require.NoError(t, err)

	tokens := auth.NewTokenStore(bunstore.NewStore(db), cookies)
	require.NoError(t, tokens.Set(ctx, "h.p.s"))

	// a new process sees the same token in both copies
	jar2, err := bunstore.NewCookieJar(ctx, db, nil)
	require.NoError(t, err)
	cookies2, err := auth.NewJarCookieStore(jar2, "http://localhost:3000")
	require.NoError(t, err)
	restored := auth.NewTokenStore(bunstore.NewStore(db), cookies2)

	value, err := restored.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "h.p.s", value)
	cookie, ok := restored.CookieValue(ctx)
	assert.True(t, ok)
	assert.Equal(t, "h.p.s", cookie)

	require.NoError(t, restored.Clear(ctx))
	value, err = tokens.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestTokenStoreRollsBackWhenCookieRowFails(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	logger := &errLogger{}

	jar, err := bunstore.NewCookieJar(ctx, db, logger)
	require.NoError(t, err)
	cookies, err := auth.NewJarCookieStore(jar, "http://localhost:3000")
	require.NoError(t, err)

	tokens := auth.NewTokenStore(bunstore.NewStore(db), cookies)
	require.NoError(t, tokens.Set(ctx, "first.token.value"))

	_, err = db.NewDropTable().Model((*bunstore.CookieModel)(nil)).Exec(ctx)
	require.NoError(t, err)

	err = tokens.Set(ctx, "second.token.value")
	require.Error(t, err)

	value, err := tokens.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first.token.value", value)
	cookie, ok := tokens.CookieValue(ctx)
	assert.True(t, ok)
	assert.Equal(t, "first.token.value", cookie)

	// responses still land in memory, the failure is only logged
	api, _ := url.Parse("http://localhost:5000/api/auth/login")
	jar.SetCookies(api, []*http.Cookie{{Name: "refreshToken", Value: "opaque", Path: "/", MaxAge: 60}})
	assert.Len(t, jar.Cookies(api), 1)
	assert.NotEmpty(t, logger.lines)
}
