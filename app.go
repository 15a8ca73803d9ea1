// Package wellness assembles the client core: credential storage, the
// authorized request pipeline with its refresh coordinator, the session
// manager, the resource clients and the breathing exercise.
package wellness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
	"go.etcd.io/bbolt"

	"github.com/layer-3/wellness/adapters/events"
	"github.com/layer-3/wellness/adapters/store"
	"github.com/layer-3/wellness/breathing"
	"github.com/layer-3/wellness/config"
	"github.com/layer-3/wellness/core"
	"github.com/layer-3/wellness/logger"
	"github.com/layer-3/wellness/ports"
	"github.com/layer-3/wellness/service"
	transport "github.com/layer-3/wellness/transport/http"
)

// App is a configured client. Close releases the store and event bus.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	Store   ports.CredentialStore
	Client  *transport.Client
	Session *service.SessionManager

	MentalBox *transport.MentalBoxClient
	Mood      *transport.MoodTrackerClient
	Reframes  *transport.StressReframeClient

	redis      redis.UniversalClient
	subscriber message.Subscriber
	closers    []func() error
}

type Option func(*options)

type options struct {
	store      ports.CredentialStore
	redis      redis.UniversalClient
	httpClient *http.Client
	entryView  transport.EntryViewFunc
	logger     *slog.Logger
}

// WithCredentialStore bypasses store.driver.
func WithCredentialStore(s ports.CredentialStore) Option {
	return func(o *options) { o.store = s }
}

// WithRedisClient is used by the redis drivers instead of dialing redis.url.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *options) { o.redis = client }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithEntryView suppresses session-expired events while fn reports true.
func WithEntryView(fn func() bool) Option {
	return func(o *options) { o.entryView = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New builds an App from cfg. It does not touch the network; call
// Session.Initialize to resolve a stored session.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{logger: logger.Get()}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg, logger: o.logger, redis: o.redis}
	if err := a.setup(o); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) setup(o options) error {
	credentials, err := a.openStore(o)
	if err != nil {
		return err
	}
	a.Store = credentials

	publisher, err := a.openEvents()
	if err != nil {
		return err
	}

	hc := o.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: a.cfg.API.Timeout}
	}

	// The client's expiry hook needs the manager, which needs the client's
	// coordinator.
	var manager *service.SessionManager
	clientOpts := []transport.ClientOption{
		transport.WithHTTPClient(hc),
		transport.WithLogger(a.logger.With("component", "api")),
		transport.WithPublisher(publisher),
		transport.WithRefreshTimeout(a.cfg.API.RefreshTimeout),
		transport.OnSessionExpired(func(ctx context.Context, cause error) {
			manager.Expire(ctx, cause)
		}),
	}
	if o.entryView != nil {
		clientOpts = append(clientOpts, transport.WithEntryView(o.entryView))
	}
	client, err := transport.NewClient(a.cfg.API.BaseURL, credentials, clientOpts...)
	if err != nil {
		return err
	}

	manager = service.NewSessionManager(
		transport.NewAuthAPI(client),
		client.Coordinator(),
		credentials,
		service.WithSessionPublisher(publisher),
		service.WithSessionLogger(a.logger.With("component", "session")),
	)

	a.Client = client
	a.Session = manager
	a.MentalBox = transport.NewMentalBoxClient(client)
	a.Mood = transport.NewMoodTrackerClient(client)
	a.Reframes = transport.NewStressReframeClient(client)
	return nil
}

func (a *App) openStore(o options) (ports.CredentialStore, error) {
	if o.store != nil {
		return o.store, nil
	}

	switch a.cfg.Store.Driver {
	case config.StoreMemory:
		return store.NewMemoryCredentialStore(), nil
	case config.StoreBolt:
		if err := os.MkdirAll(filepath.Dir(a.cfg.Store.Path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		s, err := store.NewBoltCredentialStoreFromFile(a.cfg.Store.Path, &bbolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	case config.StoreRedis:
		client, err := a.redisClient()
		if err != nil {
			return nil, err
		}
		return store.NewRedisCredentialStore(client, a.cfg.Store.Key), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
}

func (a *App) openEvents() (ports.EventPublisher, error) {
	switch a.cfg.Events.Driver {
	case config.EventsNone:
		return events.NopPublisher{}, nil
	case config.EventsGoChannel:
		bus := events.NewGoChannel(logger.Watermill())
		a.subscriber = bus
		a.closers = append(a.closers, bus.Close)
		return events.NewWatermillPublisher(bus, a.cfg.Events.Topic), nil
	case config.EventsRedis:
		client, err := a.redisClient()
		if err != nil {
			return nil, err
		}
		pub, err := events.NewRedisStreamPublisher(client, logger.Watermill())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pub.Close)
		sub, err := events.NewRedisStreamSubscriber(client, a.cfg.Events.ConsumerGroup, logger.Watermill())
		if err != nil {
			return nil, err
		}
		a.subscriber = sub
		a.closers = append(a.closers, sub.Close)
		return events.NewWatermillPublisher(pub, a.cfg.Events.Topic), nil
	}
	return nil, fmt.Errorf("unknown events driver %q", a.cfg.Events.Driver)
}

// redisClient returns the shared redis client, dialing redis.url on first use.
func (a *App) redisClient() (redis.UniversalClient, error) {
	if a.redis != nil {
		return a.redis, nil
	}
	opts, err := redis.ParseURL(a.cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	a.closers = append(a.closers, client.Close)
	a.redis = client
	return client, nil
}

// SessionEvents streams session events until ctx ends. It fails when the
// events driver is none.
func (a *App) SessionEvents(ctx context.Context) (<-chan core.SessionEvent, error) {
	if a.subscriber == nil {
		return nil, errors.New("session events are disabled")
	}
	return events.Subscribe(ctx, a.subscriber, a.cfg.Events.Topic)
}

// NewBreathingExercise returns an idle exercise ticking at the configured
// interval.
func (a *App) NewBreathingExercise(opts ...breathing.Option) *breathing.Exercise {
	base := []breathing.Option{
		breathing.WithInterval(a.cfg.Breathing.Interval),
		breathing.WithLogger(a.logger.With("component", "breathing")),
	}
	return breathing.NewExercise(append(base, opts...)...)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
