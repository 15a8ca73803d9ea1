package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"github.com/layer-3/wellness/core"
	"github.com/layer-3/wellness/ports"
	"github.com/layer-3/wellness/service"
)

const (
	DefaultBaseURL = "http://localhost:8000/api"
	DefaultTimeout = 30 * time.Second

	RequestIDHeader = "X-Request-ID"
)

// Auth endpoint paths, relative to the base URL.
const (
	PathLogin    = "/auth/login"
	PathRegister = "/auth/register"
	PathRefresh  = "/auth/refresh"
	PathLogout   = "/auth/logout"
	PathMe       = "/auth/me"
)

// EntryViewFunc reports whether the user is already looking at the login or
// register page, in which case session-expired events are not published.
type EntryViewFunc func() bool

// Client sends authorized requests to the backend. It attaches the stored
// access credential, and on a 401 from a non-auth endpoint refreshes once
// through its RefreshCoordinator and replays the request once.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	store      ports.CredentialStore
	publisher  ports.EventPublisher
	entryView  EntryViewFunc
	onExpired  []service.FailureHook
	logger     *slog.Logger

	refreshTimeout time.Duration
	coordinator    *service.RefreshCoordinator
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A client without a
// cookie jar gets one, since refresh depends on the refresh cookie.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithPublisher(publisher ports.EventPublisher) ClientOption {
	return func(c *Client) {
		c.publisher = publisher
	}
}

func WithEntryView(fn EntryViewFunc) ClientOption {
	return func(c *Client) {
		c.entryView = fn
	}
}

// OnSessionExpired registers a hook run after every failed refresh cycle,
// whether or not the expired event is published.
func OnSessionExpired(hook service.FailureHook) ClientOption {
	return func(c *Client) {
		c.onExpired = append(c.onExpired, hook)
	}
}

func WithRefreshTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.refreshTimeout = d
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, store ports.CredentialStore, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		store:   store,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}

	c.coordinator = service.NewRefreshCoordinator(c.refreshCredential, store,
		service.WithFailureHook(c.sessionExpired),
		service.WithRefreshTimeout(c.refreshTimeout),
		service.WithCoordinatorLogger(c.logger),
	)
	return c, nil
}

// Coordinator returns the refresh coordinator shared by every request made
// through this client.
func (c *Client) Coordinator() *service.RefreshCoordinator {
	return c.coordinator
}

// Do sends body as JSON and decodes a successful response into out. Either
// may be nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	op := method + " " + path
	status, data, err := c.send(ctx, method, path, payload)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && !isAuthEndpoint(path) {
		original := statusError(op, path, status, data)
		c.logger.Debug("authorization failed, refreshing", "op", op)

		if _, rerr := c.coordinator.RequestRefresh(ctx); rerr != nil {
			return fmt.Errorf("%w: %w", rerr, original)
		}

		// Replayed once with whatever credential is current now; a second 401
		// is returned as is.
		status, data, err = c.send(ctx, method, path, payload)
		if err != nil {
			return err
		}
	}

	if status >= http.StatusBadRequest {
		return statusError(op, path, status, data)
	}
	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%s: failed to decode response: %w", op, err)
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	op := method + " " + path

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), body)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.store.Get(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read credential: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &core.APIError{Op: op, Err: fmt.Errorf("%w: %w", core.ErrNetwork, err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &core.APIError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: %w", core.ErrNetwork, err)}
	}
	c.logger.Debug("api call", "op", op, "status", resp.StatusCode, "request_id", req.Header.Get(RequestIDHeader))
	return resp.StatusCode, data, nil
}

func (c *Client) resolve(path string) string {
	u := *c.baseURL
	p, query, _ := strings.Cut(path, "?")
	u.Path = c.baseURL.Path + "/" + strings.TrimLeft(p, "/")
	u.RawQuery = query
	return u.String()
}

func (c *Client) refreshCredential(ctx context.Context) (string, error) {
	var result core.AuthResult
	if err := c.Do(ctx, http.MethodPost, PathRefresh, struct{}{}, &result); err != nil {
		return "", err
	}
	return result.Token, nil
}

// sessionExpired runs once per failed refresh cycle.
func (c *Client) sessionExpired(ctx context.Context, cause error) {
	for _, hook := range c.onExpired {
		hook(ctx, cause)
	}

	if c.entryView != nil && c.entryView() {
		c.logger.Debug("session expired on entry view, not publishing")
		return
	}
	if c.publisher == nil {
		return
	}
	event := core.SessionEvent{
		Kind:   core.SessionExpired,
		Reason: cause.Error(),
		At:     time.Now().UTC(),
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.Warn("failed to publish session expired event", "error", err)
	}
}

func isAuthEndpoint(path string) bool {
	p, _, _ := strings.Cut(path, "?")
	switch strings.TrimRight(p, "/") {
	case PathLogin, PathRegister, PathRefresh:
		return true
	}
	return false
}
