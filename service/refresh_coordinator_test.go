package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/wellness/adapters/store"
	"github.com/layer-3/wellness/core"
)

// gatedRefresh blocks every refresh call until release is closed.
type gatedRefresh struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	token   string
	err     error
}

func newGatedRefresh(token string, err error) *gatedRefresh {
	return &gatedRefresh{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
		token:   token,
		err:     err,
	}
}

func (g *gatedRefresh) call(ctx context.Context) (string, error) {
	g.calls.Add(1)
	g.started <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return g.token, g.err
}

// waitQueued blocks until n callers are parked behind the in-flight refresh.
func waitQueued(t *testing.T, c *RefreshCoordinator, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.Waiting() == n
	}, time.Second, time.Millisecond)
}

func TestRefreshCoordinatorSingleCallForConcurrentCallers(t *testing.T) {
	ctx := context.Background()
	creds := store.NewMemoryCredentialStore()
	refresh := newGatedRefresh("fresh-token", nil)
	c := NewRefreshCoordinator(refresh.call, creds)

	const n = 16
	var wg sync.WaitGroup
	results := make(chan string, n)
	errs := make(chan error, n)

	wg.Add(1)
	go func() {
		defer wg.Done()
		token, err := c.RequestRefresh(ctx)
		results <- token
		errs <- err
	}()
	<-refresh.started

	for i := 1; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := c.RequestRefresh(ctx)
			results <- token
			errs <- err
		}()
	}
	waitQueued(t, c, n-1)
	assert.True(t, c.InFlight())

	close(refresh.release)
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	for token := range results {
		assert.Equal(t, "fresh-token", token)
	}
	assert.Equal(t, int32(1), refresh.calls.Load(), "exactly one refresh call")
	assert.False(t, c.InFlight())

	stored, err := creds.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", stored)
}

func TestRefreshCoordinatorFailureRejectsAllWaitersAndHooksOnce(t *testing.T) {
	ctx := context.Background()
	creds := store.NewMemoryCredentialStore()
	require.NoError(t, creds.Set(ctx, "stale"))

	refreshErr := fmt.Errorf("POST /auth/refresh: %w", core.ErrInvalidRefreshToken)
	refresh := newGatedRefresh("", refreshErr)

	var hookCalls atomic.Int32
	c := NewRefreshCoordinator(refresh.call, creds, WithFailureHook(func(ctx context.Context, err error) {
		hookCalls.Add(1)
		assert.ErrorIs(t, err, core.ErrInvalidRefreshToken)
	}))

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	request := func() {
		defer wg.Done()
		_, err := c.RequestRefresh(ctx)
		errs <- err
	}

	wg.Add(1)
	go request()
	<-refresh.started
	wg.Add(2)
	go request()
	go request()
	waitQueued(t, c, 2)

	close(refresh.release)
	wg.Wait()
	close(errs)

	count := 0
	for err := range errs {
		count++
		assert.ErrorIs(t, err, core.ErrInvalidRefreshToken)
	}
	assert.Equal(t, 3, count)
	assert.Equal(t, int32(1), refresh.calls.Load())
	assert.Equal(t, int32(1), hookCalls.Load(), "failure hook runs once per cycle")

	stored, err := creds.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestRefreshCoordinatorReturnsToIdle(t *testing.T) {
	ctx := context.Background()
	creds := store.NewMemoryCredentialStore()

	var calls atomic.Int32
	c := NewRefreshCoordinator(func(ctx context.Context) (string, error) {
		n := calls.Add(1)
		return fmt.Sprintf("token-%d", n), nil
	}, creds)

	first, err := c.RequestRefresh(ctx)
	require.NoError(t, err)
	second, err := c.RequestRefresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, "token-1", first)
	assert.Equal(t, "token-2", second, "a later request starts a new cycle")
	assert.Equal(t, int32(2), calls.Load())
}

func TestRefreshCoordinatorWaitersResolvedInEnqueueOrder(t *testing.T) {
	ctx := context.Background()
	refresh := newGatedRefresh("t", nil)
	c := NewRefreshCoordinator(refresh.call, store.NewMemoryCredentialStore())

	go c.RequestRefresh(ctx)
	<-refresh.started

	// Park waiters directly so their queue positions are known.
	c.mu.Lock()
	waiters := []chan refreshOutcome{
		make(chan refreshOutcome, 1),
		make(chan refreshOutcome, 1),
		make(chan refreshOutcome, 1),
	}
	c.waiters = append(c.waiters, waiters...)
	c.mu.Unlock()

	close(refresh.release)
	for i, w := range waiters {
		select {
		case out := <-w:
			assert.Equal(t, "t", out.token, "waiter %d", i)
		case <-time.After(time.Second):
			t.Fatalf("waiter %d not resolved", i)
		}
	}
}

func TestRefreshCoordinatorWaiterContextCancelled(t *testing.T) {
	refresh := newGatedRefresh("t", nil)
	c := NewRefreshCoordinator(refresh.call, store.NewMemoryCredentialStore())

	leaderDone := make(chan error, 1)
	go func() {
		_, err := c.RequestRefresh(context.Background())
		leaderDone <- err
	}()
	<-refresh.started

	ctx, cancel := context.WithCancel(context.Background())
	waiterDone := make(chan error, 1)
	go func() {
		_, err := c.RequestRefresh(ctx)
		waiterDone <- err
	}()
	waitQueued(t, c, 1)
	cancel()

	assert.ErrorIs(t, <-waiterDone, context.Canceled)

	close(refresh.release)
	assert.NoError(t, <-leaderDone, "the leader's call is unaffected")
}

func TestRefreshCoordinatorLeaderCancellationDoesNotAbortCall(t *testing.T) {
	refresh := newGatedRefresh("t", nil)
	c := NewRefreshCoordinator(refresh.call, store.NewMemoryCredentialStore())

	ctx, cancel := context.WithCancel(context.Background())
	leaderDone := make(chan error, 1)
	go func() {
		_, err := c.RequestRefresh(ctx)
		leaderDone <- err
	}()
	<-refresh.started

	waiterDone := make(chan string, 1)
	go func() {
		token, _ := c.RequestRefresh(context.Background())
		waiterDone <- token
	}()
	waitQueued(t, c, 1)

	cancel()
	close(refresh.release)

	assert.NoError(t, <-leaderDone)
	assert.Equal(t, "t", <-waiterDone)
}

func TestRefreshCoordinatorEmptyTokenIsFailure(t *testing.T) {
	creds := store.NewMemoryCredentialStore()
	c := NewRefreshCoordinator(func(ctx context.Context) (string, error) {
		return "", nil
	}, creds)

	_, err := c.RequestRefresh(context.Background())
	assert.True(t, errors.Is(err, core.ErrInvalidRefreshToken))
}

func TestRefreshCoordinatorTimeout(t *testing.T) {
	refresh := newGatedRefresh("t", nil)
	c := NewRefreshCoordinator(refresh.call, store.NewMemoryCredentialStore(), WithRefreshTimeout(20*time.Millisecond))

	_, err := c.RequestRefresh(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, c.InFlight())
}
