// Package devbackend is a reference implementation of the wellness REST
// backend. It backs the devserver command and the end-to-end tests of the
// client.
package devbackend

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/wellness/adapters/events"
	"github.com/layer-3/wellness/adapters/store"
	"github.com/layer-3/wellness/adapters/tokenizer"
	"github.com/layer-3/wellness/ports"
)

type Config struct {
	Addr         string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	SecureCookie bool
	// BcryptCost of zero uses bcrypt.DefaultCost.
	BcryptCost int
}

// Server wires the auth service, repositories and router together.
type Server struct {
	cfg    Config
	auth   *AuthService
	repo   *Repository
	router *gin.Engine
	logger *slog.Logger
}

type Option func(*options)

type options struct {
	revocations ports.RevocationStore
	publisher   ports.EventPublisher
	reframer    Reframer
	signKey     *ecdsa.PrivateKey
	logger      *slog.Logger
}

// WithRevocationStore replaces the in-memory revocation store, e.g. with
// store.NewRedisRevocationStore.
func WithRevocationStore(s ports.RevocationStore) Option {
	return func(o *options) { o.revocations = s }
}

func WithEventPublisher(p ports.EventPublisher) Option {
	return func(o *options) { o.publisher = p }
}

func WithReframer(r Reframer) Option {
	return func(o *options) { o.reframer = r }
}

// WithSigningKey fixes the token signing key. A fresh key is generated
// otherwise, so tokens do not survive a restart.
func WithSigningKey(key *ecdsa.PrivateKey) Option {
	return func(o *options) { o.signKey = key }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func New(cfg Config, opts ...Option) (*Server, error) {
	o := options{
		publisher: events.NopPublisher{},
		reframer:  TemplateReframer{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.revocations == nil {
		o.revocations = store.NewMemoryRevocationStore()
	}
	if o.signKey == nil {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		o.signKey = key
	}

	gin.SetMode(gin.ReleaseMode)

	auth := NewAuthService(
		tokenizer.NewJWTTokenizer(o.signKey),
		o.revocations,
		NewUserStore(cfg.BcryptCost),
		o.publisher,
		o.logger,
	)
	auth.SetTTLs(cfg.AccessTTL, cfg.RefreshTTL)

	repo := NewRepository()
	return &Server{
		cfg:    cfg,
		auth:   auth,
		repo:   repo,
		router: SetupRouter(auth, repo, o.reframer, cfg.SecureCookie, o.logger),
		logger: o.logger,
	}, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ExpireAccessTokens invalidates every access token issued so far while
// leaving refresh cookies valid.
func (s *Server) ExpireAccessTokens() {
	s.auth.ExpireAccessTokens()
}

// Run serves on cfg.Addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dev backend listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	}
}
