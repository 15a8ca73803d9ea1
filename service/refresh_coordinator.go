package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/layer-3/wellness/core"
	"github.com/layer-3/wellness/ports"
)

// RefreshFunc performs the network call that exchanges the long-lived
// credential for a new access credential.
type RefreshFunc func(ctx context.Context) (string, error)

// FailureHook runs once for every refresh cycle that failed.
type FailureHook func(ctx context.Context, err error)

// DefaultRefreshTimeout bounds a single refresh call.
const DefaultRefreshTimeout = 15 * time.Second

type refreshState int

const (
	refreshIdle refreshState = iota
	refreshInFlight
)

type refreshOutcome struct {
	token string
	err   error
}

// RefreshCoordinator makes sure concurrent callers that hit an
// authorization failure share a single refresh call.
//
// The first caller while idle becomes the leader and issues the call; later
// callers queue a waiter. When the call returns, the store is updated
// (Set on success, Clear on failure), every waiter queued behind that call
// receives the same outcome in enqueue order, and the coordinator is idle
// again. A failed cycle invokes the failure hook exactly once.
type RefreshCoordinator struct {
	refresh RefreshFunc
	store   ports.CredentialStore
	onFail  FailureHook
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	state   refreshState
	waiters []chan refreshOutcome
}

var _ ports.Refresher = (*RefreshCoordinator)(nil)

// CoordinatorOption configures a RefreshCoordinator.
type CoordinatorOption func(*RefreshCoordinator)

// WithFailureHook sets the hook run after a failed refresh cycle.
func WithFailureHook(hook FailureHook) CoordinatorOption {
	return func(c *RefreshCoordinator) {
		c.onFail = hook
	}
}

// WithRefreshTimeout bounds the refresh call; zero keeps the default.
func WithRefreshTimeout(d time.Duration) CoordinatorOption {
	return func(c *RefreshCoordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCoordinatorLogger sets the structured logger.
func WithCoordinatorLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *RefreshCoordinator) {
		c.logger = logger
	}
}

// NewRefreshCoordinator creates an idle coordinator.
func NewRefreshCoordinator(refresh RefreshFunc, store ports.CredentialStore, opts ...CoordinatorOption) *RefreshCoordinator {
	c := &RefreshCoordinator{
		refresh: refresh,
		store:   store,
		timeout: DefaultRefreshTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestRefresh returns a freshly issued access credential, joining the
// refresh already in flight if there is one.
func (c *RefreshCoordinator) RequestRefresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state == refreshInFlight {
		waiter := make(chan refreshOutcome, 1)
		c.waiters = append(c.waiters, waiter)
		queued := len(c.waiters)
		c.mu.Unlock()

		c.logger.Debug("waiting for in-flight refresh", "position", queued)
		select {
		case out := <-waiter:
			return out.token, out.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	c.state = refreshInFlight
	c.mu.Unlock()

	return c.lead(ctx)
}

// InFlight reports whether a refresh call is outstanding.
func (c *RefreshCoordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == refreshInFlight
}

// Waiting reports how many callers are queued behind the in-flight refresh.
func (c *RefreshCoordinator) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

func (c *RefreshCoordinator) lead(ctx context.Context) (string, error) {
	// Waiters depend on this call, so one caller going away must not abort it.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	token, err := c.refresh(callCtx)
	if err == nil && token == "" {
		err = fmt.Errorf("%w: empty token in refresh response", core.ErrInvalidRefreshToken)
	}

	if err == nil {
		if serr := c.store.Set(callCtx, token); serr != nil {
			err = fmt.Errorf("failed to store refreshed credential: %w", serr)
		}
	}

	if err != nil {
		if cerr := c.store.Clear(callCtx); cerr != nil {
			c.logger.Warn("failed to clear credential after refresh failure", "error", cerr)
		}
		c.finish(refreshOutcome{err: err})
		c.logger.Info("refresh failed", "error", err)
		if c.onFail != nil {
			c.onFail(callCtx, err)
		}
		return "", err
	}

	c.finish(refreshOutcome{token: token})
	c.logger.Debug("refresh succeeded")
	return token, nil
}

// finish returns the coordinator to idle and resolves every waiter queued
// behind the call that just completed.
func (c *RefreshCoordinator) finish(out refreshOutcome) {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.state = refreshIdle
	c.mu.Unlock()

	for _, w := range waiters {
		w <- out
	}
}
