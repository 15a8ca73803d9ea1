package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/layer-3/wellness/core"
	"github.com/layer-3/wellness/ports"
)

// SessionState is the view of the session the rest of the application reads.
type SessionState struct {
	Identity       *core.Identity
	Authenticating bool
}

// SessionManager owns the current identity. It resolves the session at
// start-up and exposes login, register and logout.
type SessionManager struct {
	api       ports.AuthAPI
	refresher ports.Refresher
	store     ports.CredentialStore
	publisher ports.EventPublisher
	logger    *slog.Logger

	initOnce sync.Once
	ready    chan struct{}
	initErr  error

	mu             sync.RWMutex
	identity       *core.Identity
	authenticating bool
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithSessionPublisher sets where authenticated and logged-out events go.
func WithSessionPublisher(publisher ports.EventPublisher) SessionOption {
	return func(m *SessionManager) {
		m.publisher = publisher
	}
}

// WithSessionLogger sets the structured logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(m *SessionManager) {
		m.logger = logger
	}
}

// NewSessionManager creates a manager with no identity. Call Initialize once
// before rendering anything that needs a session.
func NewSessionManager(api ports.AuthAPI, refresher ports.Refresher, store ports.CredentialStore, opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		api:       api,
		refresher: refresher,
		store:     store,
		logger:    slog.Default(),
		ready:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize resolves the session from the stored credential. It runs once;
// later calls wait for and return the first run's result. An unauthenticated
// outcome is not an error.
func (m *SessionManager) Initialize(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.setAuthenticating(true)
		defer func() {
			m.setAuthenticating(false)
			close(m.ready)
		}()
		m.initErr = m.resolve(ctx)
	})
	<-m.ready
	return m.initErr
}

func (m *SessionManager) resolve(ctx context.Context) error {
	token, err := m.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to read stored credential: %w", err)
	}
	if token == "" {
		m.logger.Debug("no stored credential")
		return nil
	}

	identity, err := m.api.Me(ctx)
	if err != nil && !errors.Is(err, core.ErrInvalidRefreshToken) {
		m.logger.Debug("identity fetch failed, trying silent refresh", "error", err)
		if _, rerr := m.refresher.RequestRefresh(ctx); rerr != nil {
			err = rerr
		} else {
			identity, err = m.api.Me(ctx)
		}
	}
	if err != nil {
		m.logger.Info("stored session is no longer valid", "error", err)
		if cerr := m.store.Clear(ctx); cerr != nil {
			m.logger.Warn("failed to clear credential", "error", cerr)
		}
		m.setIdentity(nil)
		return nil
	}

	m.setIdentity(identity)
	m.logger.Info("session restored", "user_id", identity.ID)
	return nil
}

// Ready is closed once Initialize has finished.
func (m *SessionManager) Ready() <-chan struct{} {
	return m.ready
}

// Login authenticates with an email or username. Backend errors are
// returned unmodified.
func (m *SessionManager) Login(ctx context.Context, emailOrUsername, password string) (*core.Identity, error) {
	req := core.LoginRequest{Email: emailOrUsername, Password: password}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	result, err := m.api.Login(ctx, req)
	if err != nil {
		return nil, err
	}
	return m.establish(ctx, result)
}

// Register creates an account and signs in with it.
func (m *SessionManager) Register(ctx context.Context, req core.RegisterRequest) (*core.Identity, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	result, err := m.api.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	return m.establish(ctx, result)
}

func (m *SessionManager) establish(ctx context.Context, result *core.AuthResult) (*core.Identity, error) {
	if err := m.store.Set(ctx, result.Token); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}
	identity := result.User
	m.setIdentity(&identity)
	m.publish(ctx, core.SessionAuthenticated, identity.ID, "")
	m.logger.Info("authenticated", "user_id", identity.ID)
	return m.Identity(), nil
}

// Logout tells the backend to drop the long-lived credential and clears the
// local session whatever the backend answers. Calling it without a session
// does nothing observable.
func (m *SessionManager) Logout(ctx context.Context) {
	m.mu.RLock()
	var userID string
	if m.identity != nil {
		userID = m.identity.ID
	}
	m.mu.RUnlock()

	token, err := m.store.Get(ctx)
	if err != nil {
		m.logger.Warn("failed to read credential during logout", "error", err)
	}
	active := userID != "" || token != ""

	if active {
		if err := m.api.Logout(ctx); err != nil {
			m.logger.Warn("backend logout failed", "error", err)
		}
	}
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("failed to clear credential", "error", err)
	}
	m.setIdentity(nil)

	if active {
		m.publish(ctx, core.SessionLoggedOut, userID, "")
		m.logger.Info("logged out", "user_id", userID)
	}
}

// Expire drops the identity after the refresh flow gave up on the session.
// The credential has already been cleared by then.
func (m *SessionManager) Expire(ctx context.Context, cause error) {
	m.mu.Lock()
	had := m.identity != nil
	m.identity = nil
	m.mu.Unlock()
	if had {
		m.logger.Info("session expired", "error", cause)
	}
}

// Identity returns a copy of the current identity, or nil.
func (m *SessionManager) Identity() *core.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.identity == nil {
		return nil
	}
	identity := *m.identity
	return &identity
}

func (m *SessionManager) State() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state := SessionState{Authenticating: m.authenticating}
	if m.identity != nil {
		identity := *m.identity
		state.Identity = &identity
	}
	return state
}

func (m *SessionManager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.identity != nil
}

func (m *SessionManager) setIdentity(identity *core.Identity) {
	m.mu.Lock()
	m.identity = identity
	m.mu.Unlock()
}

func (m *SessionManager) setAuthenticating(v bool) {
	m.mu.Lock()
	m.authenticating = v
	m.mu.Unlock()
}

func (m *SessionManager) publish(ctx context.Context, kind core.SessionEventKind, userID, reason string) {
	if m.publisher == nil {
		return
	}
	event := core.SessionEvent{Kind: kind, UserID: userID, Reason: reason, At: time.Now().UTC()}
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.logger.Warn("failed to publish session event", "kind", kind, "error", err)
	}
}
