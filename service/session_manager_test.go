package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/wellness/adapters/store"
	"github.com/layer-3/wellness/core"
)

// fakeAuthAPI accepts one account and answers Me for a fixed set of tokens.
type fakeAuthAPI struct {
	mu          sync.Mutex
	store       *store.MemoryCredentialStore
	user        core.Identity
	password    string
	validTokens map[string]bool
	refreshTo   string
	refreshErr  error
	logoutErr   error

	meCalls      int
	refreshCalls int
	logoutCalls  int
}

func newFakeAuthAPI(creds *store.MemoryCredentialStore) *fakeAuthAPI {
	return &fakeAuthAPI{
		store: creds,
		user: core.Identity{
			ID:                "user-1",
			Email:             "ada@example.com",
			Username:          "ada",
			PreferredLanguage: "en",
			PreferredTheme:    "light",
		},
		password:    "correct horse",
		validTokens: map[string]bool{},
	}
}

func (f *fakeAuthAPI) Login(ctx context.Context, req core.LoginRequest) (*core.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if (req.Email != f.user.Email && req.Email != f.user.Username) || req.Password != f.password {
		return nil, &core.APIError{Op: "POST /auth/login", Status: 401, Err: core.ErrInvalidCredentials}
	}
	f.validTokens["login-token"] = true
	return &core.AuthResult{User: f.user, Token: "login-token"}, nil
}

func (f *fakeAuthAPI) Register(ctx context.Context, req core.RegisterRequest) (*core.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.Email == f.user.Email {
		return nil, &core.APIError{Op: "POST /auth/register", Status: 409, Message: "email already registered", Err: core.ErrValidation}
	}
	user := core.Identity{ID: "user-2", Email: req.Email, Username: req.Username}
	f.validTokens["register-token"] = true
	return &core.AuthResult{User: user, Token: "register-token"}, nil
}

func (f *fakeAuthAPI) Refresh(ctx context.Context) (*core.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	f.validTokens[f.refreshTo] = true
	return &core.AuthResult{User: f.user, Token: f.refreshTo}, nil
}

func (f *fakeAuthAPI) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAuthAPI) Me(ctx context.Context) (*core.Identity, error) {
	token, _ := f.store.Get(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meCalls++
	if !f.validTokens[token] {
		return nil, &core.APIError{Op: "GET /auth/me", Status: 401, Err: core.ErrUnauthorized}
	}
	user := f.user
	return &user, nil
}

func (f *fakeAuthAPI) refreshFunc(ctx context.Context) (string, error) {
	result, err := f.Refresh(ctx)
	if err != nil {
		return "", err
	}
	return result.Token, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.SessionEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event core.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) kinds() []core.SessionEventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]core.SessionEventKind, 0, len(p.events))
	for _, e := range p.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type sessionFixture struct {
	creds     *store.MemoryCredentialStore
	api       *fakeAuthAPI
	publisher *recordingPublisher
	manager   *SessionManager
}

func newSessionFixture() *sessionFixture {
	creds := store.NewMemoryCredentialStore()
	api := newFakeAuthAPI(creds)
	publisher := &recordingPublisher{}
	coordinator := NewRefreshCoordinator(api.refreshFunc, creds)
	manager := NewSessionManager(api, coordinator, creds, WithSessionPublisher(publisher))
	return &sessionFixture{creds: creds, api: api, publisher: publisher, manager: manager}
}

func TestInitializeWithoutCredentialMakesNoCalls(t *testing.T) {
	f := newSessionFixture()

	require.NoError(t, f.manager.Initialize(context.Background()))

	assert.False(t, f.manager.IsAuthenticated())
	assert.Zero(t, f.api.meCalls)
	assert.Zero(t, f.api.refreshCalls)
	select {
	case <-f.manager.Ready():
	default:
		t.Fatal("ready channel not closed")
	}
}

func TestLoginThenInitializeRestoresSameIdentity(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture()

	identity, err := f.manager.Login(ctx, "ada", "correct horse")
	require.NoError(t, err)
	assert.True(t, f.manager.IsAuthenticated())

	// A new manager over the same store simulates a reload.
	coordinator := NewRefreshCoordinator(f.api.refreshFunc, f.creds)
	reloaded := NewSessionManager(f.api, coordinator, f.creds)
	require.NoError(t, reloaded.Initialize(ctx))

	assert.Equal(t, identity, reloaded.Identity())
	assert.Zero(t, f.api.refreshCalls)
	assert.Equal(t, []core.SessionEventKind{core.SessionAuthenticated}, f.publisher.kinds())
}

func TestInitializeRefreshesOnceThenRetriesIdentity(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture()
	require.NoError(t, f.creds.Set(ctx, "expired-token"))
	f.api.refreshTo = "refreshed-token"

	require.NoError(t, f.manager.Initialize(ctx))

	require.True(t, f.manager.IsAuthenticated())
	assert.Equal(t, "user-1", f.manager.Identity().ID)
	assert.Equal(t, 1, f.api.refreshCalls)
	assert.Equal(t, 2, f.api.meCalls)

	stored, err := f.creds.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refreshed-token", stored)
}

func TestInitializeClearsCredentialWhenRefreshFails(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture()
	require.NoError(t, f.creds.Set(ctx, "expired-token"))
	f.api.refreshErr = &core.APIError{Op: "POST /auth/refresh", Status: 401, Err: core.ErrInvalidRefreshToken}

	require.NoError(t, f.manager.Initialize(ctx))

	assert.False(t, f.manager.IsAuthenticated())
	assert.False(t, f.manager.State().Authenticating)
	stored, err := f.creds.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

// refreshingAPI reports that the transport already tried a refresh and it
// was rejected.
type refreshingAPI struct {
	*fakeAuthAPI
}

func (r refreshingAPI) Me(ctx context.Context) (*core.Identity, error) {
	r.mu.Lock()
	r.meCalls++
	r.mu.Unlock()
	return nil, &core.APIError{Op: "GET /auth/me", Status: 401, Err: core.ErrInvalidRefreshToken}
}

func TestInitializeSkipsSecondRefreshAfterPipelineRefreshFailed(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture()
	require.NoError(t, f.creds.Set(ctx, "expired-token"))

	api := refreshingAPI{f.api}
	manager := NewSessionManager(api, NewRefreshCoordinator(f.api.refreshFunc, f.creds), f.creds)
	require.NoError(t, manager.Initialize(ctx))

	assert.False(t, manager.IsAuthenticated())
	assert.Zero(t, f.api.refreshCalls)
	assert.Equal(t, 1, f.api.meCalls)
}

func TestInitializeRunsOnce(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture()
	require.NoError(t, f.creds.Set(ctx, "login-token"))
	f.api.validTokens["login-token"] = true

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.manager.Initialize(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.api.meCalls)
	assert.True(t, f.manager.IsAuthenticated())
}

func TestLoginErrorsSurfaceUnmodified(t *testing.T) {
	f := newSessionFixture()

	_, err := f.manager.Login(context.Background(), "ada", "wrong")
	var apiErr *core.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
	assert.False(t, f.manager.IsAuthenticated())
	assert.Empty(t, f.publisher.kinds())
}

func TestLoginRejectsEmptyFields(t *testing.T) {
	f := newSessionFixture()

	_, err := f.manager.Login(context.Background(), "", "pw")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("success signs in", func(t *testing.T) {
		f := newSessionFixture()
		identity, err := f.manager.Register(ctx, core.RegisterRequest{
			Email:    "grace@example.com",
			Username: "grace",
			Password: "hopper",
		})
		require.NoError(t, err)
		assert.Equal(t, "grace", identity.Username)

		stored, err := f.creds.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "register-token", stored)
	})

	t.Run("duplicate email is a validation error", func(t *testing.T) {
		f := newSessionFixture()
		_, err := f.manager.Register(ctx, core.RegisterRequest{
			Email:    "ada@example.com",
			Username: "ada2",
			Password: "pw",
		})
		assert.ErrorIs(t, err, core.ErrValidation)
		assert.False(t, f.manager.IsAuthenticated())
	})

	t.Run("malformed email rejected locally", func(t *testing.T) {
		f := newSessionFixture()
		_, err := f.manager.Register(ctx, core.RegisterRequest{Email: "nope", Username: "x", Password: "pw"})
		assert.ErrorIs(t, err, core.ErrValidation)
	})
}

func TestLogoutClearsEvenWhenBackendFails(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture()
	_, err := f.manager.Login(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)

	f.api.logoutErr = &core.APIError{Op: "POST /auth/logout", Err: core.ErrNetwork}
	f.manager.Logout(ctx)

	assert.False(t, f.manager.IsAuthenticated())
	stored, err := f.creds.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Equal(t, 1, f.api.logoutCalls)
	assert.Equal(t, []core.SessionEventKind{core.SessionAuthenticated, core.SessionLoggedOut}, f.publisher.kinds())
}

func TestLogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture()
	_, err := f.manager.Login(ctx, "ada", "correct horse")
	require.NoError(t, err)

	f.manager.Logout(ctx)
	f.manager.Logout(ctx)

	assert.False(t, f.manager.IsAuthenticated())
	assert.Equal(t, 1, f.api.logoutCalls, "second logout has nothing to notify")
	assert.Equal(t, []core.SessionEventKind{core.SessionAuthenticated, core.SessionLoggedOut}, f.publisher.kinds())
}

func TestExpireDropsIdentity(t *testing.T) {
	ctx := context.Background()
	f := newSessionFixture()
	_, err := f.manager.Login(ctx, "ada", "correct horse")
	require.NoError(t, err)

	f.manager.Expire(ctx, core.ErrInvalidRefreshToken)

	assert.False(t, f.manager.IsAuthenticated())
	assert.Nil(t, f.manager.State().Identity)
}

func TestAuthenticatingOnlyDuringInitialize(t *testing.T) {
	ctx := context.Background()
	creds := store.NewMemoryCredentialStore()
	require.NoError(t, creds.Set(ctx, "login-token"))

	gate := make(chan struct{})
	entered := make(chan struct{})
	api := &blockingMeAPI{fakeAuthAPI: newFakeAuthAPI(creds), gate: gate, entered: entered}
	api.validTokens["login-token"] = true
	manager := NewSessionManager(api, NewRefreshCoordinator(api.refreshFunc, creds), creds)

	assert.False(t, manager.State().Authenticating)
	done := make(chan error, 1)
	go func() { done <- manager.Initialize(ctx) }()

	<-entered
	assert.True(t, manager.State().Authenticating)
	close(gate)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("initialize did not finish")
	}
	assert.False(t, manager.State().Authenticating)
	assert.True(t, manager.IsAuthenticated())
}

type blockingMeAPI struct {
	*fakeAuthAPI
	gate    chan struct{}
	entered chan struct{}
}

func (b *blockingMeAPI) Me(ctx context.Context) (*core.Identity, error) {
	close(b.entered)
	<-b.gate
	return b.fakeAuthAPI.Me(ctx)
}
