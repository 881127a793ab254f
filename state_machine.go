package auth

import (
	"context"
	"slices"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

var _ SessionReader = &SessionStore{}

// SessionOption customizes SessionStore construction.
type SessionOption func(*SessionStore)

// WithSessionClock injects a custom clock (useful for tests).
func WithSessionClock(clock func() time.Time) SessionOption {
	return func(s *SessionStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithSessionActivitySink sets the ActivitySink used to publish session events.
func WithSessionActivitySink(sink ActivitySink) SessionOption {
	return func(s *SessionStore) {
		s.sink = normalizeActivitySink(sink)
	}
}

// WithSessionLogger overrides the logger used for best effort failures.
func WithSessionLogger(logger Logger) SessionOption {
	return func(s *SessionStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// SessionStore owns the Session. Every async operation raises Loading on
// start and drops it when the last in-flight operation settles. Concurrent
// flows are not ordered against each other, the last write wins.
type SessionStore struct {
	mu        sync.Mutex
	state     Session
	inflight  int
	listeners map[int]func(Session)
	nextID    int

	api    *Client
	public *Client
	tokens *TokenStore
	sink   ActivitySink
	logger Logger
	now    func() time.Time
}

// NewSessionStore returns a store in the unknown state. api is the
// authenticated client, its Public sibling is used for credential calls.
func NewSessionStore(api *Client, opts ...SessionOption) *SessionStore {
	if api == nil {
		api = NewClient(DefaultOptions().APIBaseURL, nil)
	}

	s := &SessionStore{
		listeners: map[int]func(Session){},
		api:       api,
		public:    api.Public(),
		tokens:    api.Tokens(),
		sink:      noopActivitySink{},
		logger:    defLogger{},
		now:       time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Tokens returns the token store shared with the client
func (s *SessionStore) Tokens() *TokenStore {
	return s.tokens
}

// State returns a snapshot of the current session
func (s *SessionStore) State() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn for every published snapshot and returns the
// function that removes it
func (s *SessionStore) Subscribe(fn func(Session)) func() {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Register creates an account and signs it in
func (s *SessionStore) Register(ctx context.Context, payload RegisterPayload) (*User, error) {
	if err := payload.Validate(); err != nil {
		return nil, newValidationError(err, "register")
	}

	return s.authenticate(ctx, PathRegister, payload,
		ActivityEventRegisterSuccess, ActivityEventRegisterFailure,
		map[string]any{"email": payload.Email})
}

// Login verifies credentials and signs the user in. Use
// User.Role.DashboardPath to pick the landing page.
func (s *SessionStore) Login(ctx context.Context, payload LoginPayload) (*User, error) {
	if err := payload.Validate(); err != nil {
		return nil, newValidationError(err, "login")
	}

	return s.authenticate(ctx, PathLogin, payload,
		ActivityEventLoginSuccess, ActivityEventLoginFailure,
		map[string]any{"email": payload.Email})
}

// CreateUser asks the API to create an account on behalf of the current
// session. The current identity and token are left as they are.
func (s *SessionStore) CreateUser(ctx context.Context, payload CreateUserPayload) (*User, error) {
	if err := payload.Validate(); err != nil {
		return nil, newValidationError(err, "create user")
	}

	s.begin()

	var out AuthResponse
	res, err := s.api.Post(ctx, PathCreateUser, payload)
	if err == nil {
		err = res.Decode(&out)
	}

	s.end(nil)

	if err != nil {
		return nil, err
	}

	created := out.User.Clone()
	if created != nil {
		s.record(ctx, ActivityEventUserCreated, created, map[string]any{
			"created_by": s.State().userID(),
		})
	}
	return created, nil
}

// GetProfile loads the current identity with the stored token. Any failure
// leaves the session anonymous. Both outcomes mark it initialized.
func (s *SessionStore) GetProfile(ctx context.Context) (*User, error) {
	s.begin()

	var out ProfileResponse
	res, err := s.api.Get(ctx, PathMe, nil)
	if err == nil {
		err = res.Decode(&out)
	}
	if err == nil && out.User == nil {
		err = withMetadata(ErrUnauthorized, nil, map[string]any{"path": PathMe})
	}

	if err != nil {
		s.end(func(st *Session) {
			st.User = nil
			st.AccessToken = ""
			st.IsAuthenticated = false
			st.Initialized = true
		})
		s.record(ctx, ActivityEventProfileFailed, nil, map[string]any{"status": StatusCode(err)})
		return nil, err
	}

	token, terr := s.tokens.Get(ctx)
	if terr != nil {
		s.logger.Error("failed to read access token after profile load: %s", terr)
	}

	user := out.User.Clone()
	s.end(func(st *Session) {
		st.User = user
		st.AccessToken = token
		st.IsAuthenticated = true
		st.Initialized = true
	})
	s.record(ctx, ActivityEventProfileLoaded, user, nil)
	return user.Clone(), nil
}

// Logout clears the token store before calling the API. The server call is
// best effort: its failure is logged and Logout still succeeds.
func (s *SessionStore) Logout(ctx context.Context) error {
	prev := s.State()

	if err := s.tokens.Clear(ctx); err != nil {
		s.logger.Error("failed to clear token on logout: %s", err)
	}

	s.begin()
	s.apply(func(st *Session) {
		st.User = nil
		st.AccessToken = ""
		st.IsAuthenticated = false
	})

	if _, err := s.public.Post(ctx, PathLogout, nil); err != nil {
		s.logger.Info("server logout failed, local session already cleared: %s", err)
	}
	s.end(nil)

	if prev.User != nil {
		s.record(ctx, ActivityEventLogout, prev.User, nil)
	}
	return nil
}

// MarkInitialized flips Initialized without touching anything else
func (s *SessionStore) MarkInitialized() {
	s.mu.Lock()
	if s.state.Initialized {
		s.mu.Unlock()
		return
	}
	s.state.Initialized = true
	snap, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(snap, listeners)
}

// UpdateProfile changes username and email of the current user
func (s *SessionStore) UpdateProfile(ctx context.Context, payload UpdateProfilePayload) (*User, error) {
	if err := payload.Validate(); err != nil {
		return nil, newValidationError(err, "update profile")
	}

	s.begin()

	var out ProfileResponse
	res, err := s.api.Put(ctx, PathUpdateProfile, payload)
	if err == nil {
		err = res.Decode(&out)
	}

	if err != nil || out.User == nil {
		s.end(nil)
		return nil, err
	}

	user := out.User.Clone()
	s.end(func(st *Session) {
		if st.User != nil {
			st.User = user
		}
	})
	s.record(ctx, ActivityEventProfileUpdated, user, nil)
	return user.Clone(), nil
}

// ChangePassword updates the password of the current user
func (s *SessionStore) ChangePassword(ctx context.Context, payload ChangePasswordPayload) error {
	if err := payload.Validate(); err != nil {
		return newValidationError(err, "change password")
	}

	s.begin()
	_, err := s.api.Put(ctx, PathChangePassword, payload)
	s.end(nil)

	if err != nil {
		return err
	}

	s.record(ctx, ActivityEventPasswordChanged, s.State().User, nil)
	return nil
}

// ResetPassword completes a password reset using the emailed token. It
// does not need a session.
func (s *SessionStore) ResetPassword(ctx context.Context, resetToken string, payload ResetPasswordPayload) error {
	if resetToken == "" {
		return goerrors.New("reset token is required", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithTextCode(TextCodeValidation)
	}

	if err := payload.Validate(); err != nil {
		return newValidationError(err, "reset password")
	}

	s.begin()
	_, err := s.public.Post(ctx, PathResetPassword+"/"+resetToken, payload)
	s.end(nil)
	return err
}

func (s *SessionStore) authenticate(
	ctx context.Context,
	path string,
	payload any,
	success, failure ActivityEventType,
	meta map[string]any,
) (*User, error) {
	s.begin()

	var out AuthResponse
	res, err := s.public.Post(ctx, path, payload)
	if err == nil {
		err = res.Decode(&out)
	}
	if err == nil && out.AccessToken == "" {
		err = withMetadata(ErrMissingAccessToken, nil, map[string]any{"path": path})
	}
	if err == nil && out.User == nil {
		err = withMetadata(ErrUnauthorized, nil, map[string]any{"path": path})
	}

	// token must be in both stores before anyone sees the new state
	if err == nil {
		err = s.tokens.Set(ctx, out.AccessToken)
	}

	if err != nil {
		s.end(nil)
		meta["status"] = StatusCode(err)
		s.record(ctx, failure, nil, meta)
		return nil, err
	}

	user := out.User.Clone()
	s.end(func(st *Session) {
		st.User = user
		st.AccessToken = out.AccessToken
		st.IsAuthenticated = true
	})
	s.record(ctx, success, user, meta)
	return user.Clone(), nil
}

func (s *SessionStore) begin() {
	s.mu.Lock()
	s.inflight++
	s.state.Loading = true
	snap, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(snap, listeners)
}

func (s *SessionStore) end(mutate func(*Session)) {
	s.commit(true, mutate)
}

// apply mutates state while the current operation is still running
func (s *SessionStore) apply(mutate func(*Session)) {
	s.commit(false, mutate)
}

func (s *SessionStore) commit(finish bool, mutate func(*Session)) {
	s.mu.Lock()
	if finish && s.inflight > 0 {
		s.inflight--
	}
	initialized := s.state.Initialized
	if mutate != nil {
		mutate(&s.state)
	}
	// initialized never reverts
	s.state.Initialized = s.state.Initialized || initialized
	s.state.IsAuthenticated = s.state.User != nil
	s.state.Loading = s.inflight > 0
	snap, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(snap, listeners)
}

func (s *SessionStore) snapshotLocked() (Session, []func(Session)) {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	fns := make([]func(Session), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	return s.state.clone(), fns
}

func (s *SessionStore) record(ctx context.Context, eventType ActivityEventType, user *User, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Metadata:   metadata,
		OccurredAt: s.now(),
	}
	if user != nil {
		event.UserID = user.ID
		event.Role = user.Role
	}
	recordActivity(ctx, s.sink, s.logger, event)
}

func (s Session) userID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

func notify(snap Session, listeners []func(Session)) {
	for _, fn := range listeners {
		fn(snap.clone())
	}
}
