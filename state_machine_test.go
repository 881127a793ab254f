package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	auth "github.com/goliatone/go-storefront-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	t      *testing.T
	mux    *http.ServeMux
	calls  sync.Map
	tokens *auth.TokenStore
}

func newFakeAPI(t *testing.T) *fakeAPI {
	return &fakeAPI{t: t, mux: http.NewServeMux()}
}

func (f *fakeAPI) handle(path string, h http.HandlerFunc) {
	f.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		n, _ := f.calls.LoadOrStore(path, new(int32))
		atomic.AddInt32(n.(*int32), 1)
		h(w, r)
	})
}

func (f *fakeAPI) count(path string) int32 {
	n, ok := f.calls.Load(path)
	if !ok {
		return 0
	}
	return atomic.LoadInt32(n.(*int32))
}

func (f *fakeAPI) session(opts ...auth.SessionOption) *auth.SessionStore {
	client, tokens, _ := newAPI(f.t, f.mux)
	f.tokens = tokens
	base := []auth.SessionOption{auth.WithSessionLogger(auth.NopLogger())}
	return auth.NewSessionStore(client, append(base, opts...)...)
}

func sellerLogin(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id":       "1",
			"username": "sam",
			"email":    "a@b.com",
			"role":     "seller",
		},
		"accessToken": "h.p.s",
		"message":     "Login successful",
	})
}

func TestSessionStoreInitialState(t *testing.T) {
	store := newFakeAPI(t).session()
	s := store.State()

	assert.Nil(t, s.User)
	assert.False(t, s.IsAuthenticated)
	assert.False(t, s.Loading)
	assert.False(t, s.Initialized)
	assert.Equal(t, auth.SessionUnknown, s.Status())
}

func TestSessionStoreLoginPersistsTokenAndPublishesUser(t *testing.T) {
	api := newFakeAPI(t)
	api.handle(auth.PathLogin, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		var body auth.LoginPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.com", body.Email)
		assert.Equal(t, "x", body.Password)
		sellerLogin(w, r)
	})
	store := api.session()
	ctx := context.Background()

	// any subscriber that sees the user must already find the token stored
	var sawToken atomic.Bool
	unsubscribe := store.Subscribe(func(s auth.Session) {
		if s.User == nil {
			return
		}
		stored, _ := api.tokens.Get(ctx)
		cookie, _ := api.tokens.CookieValue(ctx)
		sawToken.Store(stored == "h.p.s" && cookie == "h.p.s")
	})
	defer unsubscribe()

	user, err := store.Login(ctx, auth.LoginPayload{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)
	assert.Equal(t, "1", user.ID)
	assert.Equal(t, auth.RoleSeller, user.Role)
	assert.Equal(t, "/dashboard/seller", user.Role.DashboardPath())

	s := store.State()
	require.NotNil(t, s.User)
	assert.Equal(t, "1", s.User.ID)
	assert.True(t, s.IsAuthenticated)
	assert.Equal(t, "h.p.s", s.AccessToken)
	assert.False(t, s.Loading)

	stored, err := api.tokens.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "h.p.s", stored)
	cookie, ok := api.tokens.CookieValue(ctx)
	assert.True(t, ok)
	assert.Equal(t, "h.p.s", cookie)
	assert.True(t, sawToken.Load())
}

func TestSessionStoreLoginFailureLeavesStateUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
	}{
		{
			name: "bad credentials",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "db down"})
			},
			status: http.StatusInternalServerError,
		},
		{
			name: "no token in response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"id": "1"}})
			},
			status: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t)
			api.handle(auth.PathLogin, tt.handler)
			store := api.session()
			store.MarkInitialized()
			before := store.State()

			_, err := store.Login(context.Background(), auth.LoginPayload{Email: "a@b.com", Password: "x"})
			require.Error(t, err)
			assert.Equal(t, tt.status, auth.StatusCode(err))
			assert.Equal(t, before, store.State())

			stored, _ := api.tokens.Get(context.Background())
			assert.Empty(t, stored)
		})
	}
}

func TestSessionStoreValidatesBeforeNetwork(t *testing.T) {
	api := newFakeAPI(t)
	api.handle(auth.PathLogin, sellerLogin)
	api.handle(auth.PathRegister, sellerLogin)
	store := api.session()
	ctx := context.Background()

	_, err := store.Login(ctx, auth.LoginPayload{Email: "not-an-email", Password: "x"})
	require.Error(t, err)
	assert.True(t, auth.IsValidationError(err))

	_, err = store.Register(ctx, auth.RegisterPayload{Email: "a@b.com", Password: "x"})
	require.Error(t, err)
	assert.True(t, auth.IsValidationError(err))

	assert.Equal(t, int32(0), api.count(auth.PathLogin))
	assert.Equal(t, int32(0), api.count(auth.PathRegister))
	assert.Equal(t, auth.SessionUnknown, store.State().Status())
}

func TestSessionStoreRegister(t *testing.T) {
	api := newFakeAPI(t)
	api.handle(auth.PathRegister, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{
			"user":        map[string]any{"_id": "64f", "username": "kim", "email": "k@b.com", "role": "customer"},
			"accessToken": "r.e.g",
		})
	})
	store := api.session()

	user, err := store.Register(context.Background(), auth.RegisterPayload{Username: "kim", Email: "k@b.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "64f", user.ID)
	assert.Equal(t, auth.SessionAuthenticated, store.State().Status())

	stored, _ := api.tokens.Get(context.Background())
	assert.Equal(t, "r.e.g", stored)
}

func TestSessionStoreCreateUserKeepsIdentity(t *testing.T) {
	api := newFakeAPI(t)
	api.handle(auth.PathLogin, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"user":        map[string]any{"id": "9", "username": "root", "email": "root@b.com", "role": "admin"},
			"accessToken": "admin.token.value",
		})
	})
	api.handle(auth.PathCreateUser, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "admin.token.value", bearer(r))
		writeJSON(w, http.StatusCreated, map[string]any{
			"user":        map[string]any{"id": "10", "username": "new", "email": "new@b.com", "role": "seller"},
			"accessToken": "created.user.token",
		})
	})
	store := api.session()
	ctx := context.Background()

	_, err := store.Login(ctx, auth.LoginPayload{Email: "root@b.com", Password: "pw"})
	require.NoError(t, err)

	created, err := store.CreateUser(ctx, auth.CreateUserPayload{
		Username: "new",
		Email:    "new@b.com",
		Role:     auth.RoleSeller,
		Password: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "10", created.ID)

	s := store.State()
	require.NotNil(t, s.User)
	assert.Equal(t, "9", s.User.ID)
	assert.Equal(t, "admin.token.value", s.AccessToken)

	stored, _ := api.tokens.Get(ctx)
	assert.Equal(t, "admin.token.value", stored)
}

func TestSessionStoreCreateUserRejectsUnknownRole(t *testing.T) {
	api := newFakeAPI(t)
	store := api.session()

	_, err := store.CreateUser(context.Background(), auth.CreateUserPayload{
		Username: "new",
		Email:    "new@b.com",
		Role:     auth.Role("superadmin"),
		Password: "pw",
	})
	require.Error(t, err)
	assert.True(t, auth.IsValidationError(err))
	assert.Equal(t, int32(0), api.count(auth.PathCreateUser))
}

func TestSessionStoreGetProfile(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		api := newFakeAPI(t)
		api.handle(auth.PathMe, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "h.p.s", bearer(r))
			writeJSON(w, http.StatusOK, map[string]any{
				"user": map[string]any{"id": "1", "username": "sam", "email": "a@b.com", "role": "seller"},
			})
		})
		store := api.session()
		require.NoError(t, api.tokens.Set(context.Background(), "h.p.s"))

		user, err := store.GetProfile(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "1", user.ID)

		s := store.State()
		assert.True(t, s.IsAuthenticated)
		assert.True(t, s.Initialized)
		assert.False(t, s.Loading)
		assert.Equal(t, "h.p.s", s.AccessToken)
	})

	t.Run("failure is anonymous", func(t *testing.T) {
		api := newFakeAPI(t)
		api.handle(auth.PathMe, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "jwt malformed"})
		})
		api.handle(auth.PathRefreshToken, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "no refresh token"})
		})
		store := api.session()
		require.NoError(t, api.tokens.Set(context.Background(), "stale.token.value"))

		_, err := store.GetProfile(context.Background())
		require.Error(t, err)
		assert.True(t, auth.IsUnauthorized(err))

		s := store.State()
		assert.Nil(t, s.User)
		assert.False(t, s.IsAuthenticated)
		assert.True(t, s.Initialized)
		assert.False(t, s.Loading)
		assert.Equal(t, auth.SessionAnonymous, s.Status())
		assert.Equal(t, int32(1), api.count(auth.PathRefreshToken))

		stored, _ := api.tokens.Get(context.Background())
		assert.Empty(t, stored)
	})
}

func TestSessionStoreLogout(t *testing.T) {
	t.Run("clears token before calling the server", func(t *testing.T) {
		api := newFakeAPI(t)
		api.handle(auth.PathLogin, sellerLogin)
		api.handle(auth.PathLogout, func(w http.ResponseWriter, r *http.Request) {
			stored, _ := api.tokens.Get(r.Context())
			assert.Empty(t, stored)
			_, ok := api.tokens.CookieValue(r.Context())
			assert.False(t, ok)
			assert.Empty(t, r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, map[string]any{"message": "Logged out"})
		})
		store := api.session()
		ctx := context.Background()

		_, err := store.Login(ctx, auth.LoginPayload{Email: "a@b.com", Password: "x"})
		require.NoError(t, err)

		require.NoError(t, store.Logout(ctx))
		s := store.State()
		assert.Nil(t, s.User)
		assert.False(t, s.IsAuthenticated)
		assert.Empty(t, s.AccessToken)
		assert.Equal(t, int32(1), api.count(auth.PathLogout))
	})

	t.Run("loading spans the server call", func(t *testing.T) {
		api := newFakeAPI(t)
		api.handle(auth.PathLogin, sellerLogin)
		var current atomic.Pointer[auth.SessionStore]
		seen := make(chan auth.Session, 1)
		api.handle(auth.PathLogout, func(w http.ResponseWriter, r *http.Request) {
			seen <- current.Load().State()
			writeJSON(w, http.StatusOK, map[string]any{})
		})
		store := api.session()
		current.Store(store)
		ctx := context.Background()

		_, err := store.Login(ctx, auth.LoginPayload{Email: "a@b.com", Password: "x"})
		require.NoError(t, err)
		require.NoError(t, store.Logout(ctx))

		during := <-seen
		assert.True(t, during.Loading)
		assert.Nil(t, during.User)
		assert.False(t, during.IsAuthenticated)
		assert.False(t, store.State().Loading)
	})

	t.Run("server failure is swallowed", func(t *testing.T) {
		api := newFakeAPI(t)
		api.handle(auth.PathLogin, sellerLogin)
		api.handle(auth.PathLogout, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "redis down"})
		})
		store := api.session()
		ctx := context.Background()

		_, err := store.Login(ctx, auth.LoginPayload{Email: "a@b.com", Password: "x"})
		require.NoError(t, err)

		assert.NoError(t, store.Logout(ctx))
		assert.Nil(t, store.State().User)
		stored, _ := api.tokens.Get(ctx)
		assert.Empty(t, stored)
	})

	t.Run("idempotent when logged out", func(t *testing.T) {
		api := newFakeAPI(t)
		api.handle(auth.PathLogout, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{})
		})
		store := api.session()
		store.MarkInitialized()
		before := store.State()

		for i := 0; i < 3; i++ {
			require.NotPanics(t, func() {
				assert.NoError(t, store.Logout(context.Background()))
			})
			s := store.State()
			assert.Equal(t, before, s)
			assert.Nil(t, s.User)
			assert.False(t, s.IsAuthenticated)
		}
	})
}

func TestSessionStoreInitializedNeverReverts(t *testing.T) {
	api := newFakeAPI(t)
	api.handle(auth.PathLogin, sellerLogin)
	api.handle(auth.PathLogout, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	api.handle(auth.PathMe, func(w http.ResponseWriter, r *http.Request) {
		if bearer(r) == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "no token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"id": "1", "role": "seller"}})
	})
	api.handle(auth.PathRefreshToken, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{})
	})
	store := api.session()
	ctx := context.Background()

	var mu sync.Mutex
	var seen []bool
	defer store.Subscribe(func(s auth.Session) {
		mu.Lock()
		seen = append(seen, s.Initialized)
		mu.Unlock()
	})()

	login := func() { _, _ = store.Login(ctx, auth.LoginPayload{Email: "a@b.com", Password: "x"}) }
	logout := func() { _ = store.Logout(ctx) }
	profile := func() { _, _ = store.GetProfile(ctx) }

	ops := []func(){profile, login, logout, profile, login, profile, logout, logout, login}
	for _, op := range ops {
		op()
	}

	mu.Lock()
	defer mu.Unlock()
	flipped := false
	for _, initialized := range seen {
		if flipped {
			assert.True(t, initialized, "initialized reverted to false")
		}
		flipped = flipped || initialized
	}
	assert.True(t, flipped)
	assert.True(t, store.State().Initialized)
}

func TestSessionStoreLoadingSpansOperation(t *testing.T) {
	release := make(chan struct{})
	api := newFakeAPI(t)
	api.handle(auth.PathLogin, func(w http.ResponseWriter, r *http.Request) {
		<-release
		sellerLogin(w, r)
	})
	store := api.session()

	done := make(chan error, 1)
	go func() {
		_, err := store.Login(context.Background(), auth.LoginPayload{Email: "a@b.com", Password: "x"})
		done <- err
	}()

	require.Eventually(t, func() bool { return store.State().Loading }, time.Second, 5*time.Millisecond)
	close(release)
	require.NoError(t, <-done)
	assert.False(t, store.State().Loading)
}

func TestSessionStoreSubscribeAndUnsubscribe(t *testing.T) {
	store := newFakeAPI(t).session()

	var calls int32
	unsubscribe := store.Subscribe(func(s auth.Session) {
		atomic.AddInt32(&calls, 1)
	})

	store.MarkInitialized()
	store.MarkInitialized()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	unsubscribe()
	unsubscribe()
	require.NoError(t, store.Logout(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSessionStoreRecordsActivity(t *testing.T) {
	api := newFakeAPI(t)
	api.handle(auth.PathLogin, func(w http.ResponseWriter, r *http.Request) {
		var body auth.LoginPayload
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "x" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
			return
		}
		sellerLogin(w, r)
	})
	api.handle(auth.PathLogout, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	var events []auth.ActivityEvent
	sink := auth.ActivitySinkFunc(func(_ context.Context, e auth.ActivityEvent) error {
		events = append(events, e)
		return nil
	})
	store := api.session(
		auth.WithSessionActivitySink(sink),
		auth.WithSessionClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	_, err := store.Login(ctx, auth.LoginPayload{Email: "a@b.com", Password: "wrong"})
	require.Error(t, err)
	_, err = store.Login(ctx, auth.LoginPayload{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)
	require.NoError(t, store.Logout(ctx))

	require.Len(t, events, 3)
	assert.Equal(t, auth.ActivityEventLoginFailure, events[0].EventType)
	assert.Equal(t, http.StatusUnauthorized, events[0].Metadata["status"])
	assert.Equal(t, auth.ActivityEventLoginSuccess, events[1].EventType)
	assert.Equal(t, "1", events[1].UserID)
	assert.Equal(t, auth.RoleSeller, events[1].Role)
	assert.Equal(t, auth.ActivityEventLogout, events[2].EventType)
	assert.Equal(t, now, events[2].OccurredAt)
}

func TestSessionStoreAccountOperations(t *testing.T) {
	api := newFakeAPI(t)
	api.handle(auth.PathLogin, sellerLogin)
	api.handle(auth.PathUpdateProfile, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body auth.UpdateProfilePayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusOK, map[string]any{
			"user": map[string]any{"id": "1", "username": body.Username, "email": body.Email, "role": "seller"},
		})
	})
	api.handle(auth.PathChangePassword, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "h.p.s", bearer(r))
		writeJSON(w, http.StatusOK, map[string]any{"message": "Password changed"})
	})
	api.handle(auth.PathResetPassword+"/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, auth.PathResetPassword+"/reset-123", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"message": "Password reset"})
	})
	store := api.session()
	ctx := context.Background()

	_, err := store.Login(ctx, auth.LoginPayload{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)

	user, err := store.UpdateProfile(ctx, auth.UpdateProfilePayload{Username: "samuel", Email: "s@b.com"})
	require.NoError(t, err)
	assert.Equal(t, "samuel", user.Username)
	assert.Equal(t, "s@b.com", store.State().User.Email)

	require.NoError(t, store.ChangePassword(ctx, auth.ChangePasswordPayload{OldPassword: "x", NewPassword: "y"}))

	err = store.ChangePassword(ctx, auth.ChangePasswordPayload{OldPassword: "x", NewPassword: "x"})
	assert.True(t, auth.IsValidationError(err))

	require.NoError(t, store.ResetPassword(ctx, "reset-123", auth.ResetPasswordPayload{NewPassword: "z"}))
	assert.Error(t, store.ResetPassword(ctx, "", auth.ResetPasswordPayload{NewPassword: "z"}))
}
