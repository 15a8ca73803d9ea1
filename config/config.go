// Package config loads the client configuration from a YAML file, a .env
// file and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory = "memory"
	StoreBolt   = "bolt"
	StoreRedis  = "redis"

	EventsNone      = "none"
	EventsGoChannel = "gochannel"
	EventsRedis     = "redis"
)

// Environment variables that override the file.
const (
	EnvAPIBaseURL   = "WELLNESS_API_BASE_URL"
	EnvStoreDriver  = "WELLNESS_STORE_DRIVER"
	EnvStorePath    = "WELLNESS_STORE_PATH"
	EnvEventsDriver = "WELLNESS_EVENTS_DRIVER"
	EnvLogLevel     = "WELLNESS_LOG_LEVEL"
	EnvLogFormat    = "WELLNESS_LOG_FORMAT"
	EnvDevAddr      = "WELLNESS_DEV_ADDR"
	EnvRedisURL     = "REDIS_URL"
)

type Config struct {
	API       APIConfig       `yaml:"api"`
	Store     StoreConfig     `yaml:"store"`
	Events    EventsConfig    `yaml:"events"`
	Redis     RedisConfig     `yaml:"redis"`
	Log       LogConfig       `yaml:"log"`
	DevServer DevServerConfig `yaml:"dev_server"`
	Breathing BreathingConfig `yaml:"breathing"`
}

type APIConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout"`
}

// StoreConfig selects where the access credential is kept.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	// Path is the bbolt file used by the bolt driver.
	Path string `yaml:"path"`
	// Key is the redis key used by the redis driver.
	Key string `yaml:"key"`
}

// EventsConfig selects where session events are published.
type EventsConfig struct {
	Driver        string `yaml:"driver"`
	Topic         string `yaml:"topic"`
	ConsumerGroup string `yaml:"consumer_group"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// Path is a log file; empty logs to stderr.
	Path string `yaml:"path"`
}

type DevServerConfig struct {
	Addr         string        `yaml:"addr"`
	AccessTTL    time.Duration `yaml:"access_ttl"`
	RefreshTTL   time.Duration `yaml:"refresh_ttl"`
	SecureCookie bool          `yaml:"secure_cookie"`
	// UseRedis keeps revoked refresh tokens in redis instead of memory.
	UseRedis bool `yaml:"use_redis"`
}

type BreathingConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Default returns a configuration that talks to a local backend and keeps
// the credential in a bbolt file under the user's home directory.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8000/api",
			Timeout:        30 * time.Second,
			RefreshTimeout: 15 * time.Second,
		},
		Store: StoreConfig{
			Driver: StoreBolt,
			Path:   defaultStorePath(),
			Key:    "wellness:credential:access",
		},
		Events: EventsConfig{
			Driver: EventsGoChannel,
			Topic:  "wellness.session",
		},
		Redis: RedisConfig{
			URL: "redis://localhost:6379/0",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		DevServer: DevServerConfig{
			Addr:       ":8000",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Breathing: BreathingConfig{
			Interval: time.Second,
		},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".wellness", "credentials.db")
	}
	return filepath.Join(home, ".wellness", "credentials.db")
}

// LoadYAML reads path into the value built by defaults. A missing file or an
// empty path yields the defaults unchanged.
func LoadYAML[T any](path string, defaults func() *T) (*T, error) {
	cfg := defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnvFile loads variables from a .env file without overriding ones that
// are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load builds the configuration from path, envFile and the environment, and
// validates it.
func Load(path, envFile string) (*Config, error) {
	if err := LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	cfg, err := LoadYAML(path, Default)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvAPIBaseURL, &c.API.BaseURL)
	set(EnvStoreDriver, &c.Store.Driver)
	set(EnvStorePath, &c.Store.Path)
	set(EnvEventsDriver, &c.Events.Driver)
	set(EnvLogLevel, &c.Log.Level)
	set(EnvLogFormat, &c.Log.Format)
	set(EnvDevAddr, &c.DevServer.Addr)
	set(EnvRedisURL, &c.Redis.URL)
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url %q must be an http(s) URL", c.API.BaseURL)
	}

	switch c.Store.Driver {
	case StoreMemory, StoreRedis:
	case StoreBolt:
		if c.Store.Path == "" {
			return errors.New("store.path is required for the bolt driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	switch c.Events.Driver {
	case EventsNone, EventsGoChannel, EventsRedis:
	default:
		return fmt.Errorf("unknown events.driver %q", c.Events.Driver)
	}

	if c.usesRedis() && c.Redis.URL == "" {
		return errors.New("redis.url is required by the selected drivers")
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}

	if c.Breathing.Interval <= 0 {
		return errors.New("breathing.interval must be positive")
	}
	return nil
}

func (c *Config) usesRedis() bool {
	return c.Store.Driver == StoreRedis || c.Events.Driver == EventsRedis || c.DevServer.UseRedis
}

// SlogLevel parses Level as a slog level name.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("invalid log.level %q: %w", l.Level, err)
	}
	return level, nil
}
