package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/wellness/ports"
)

// DefaultCredentialKey is the redis key holding the access credential.
const DefaultCredentialKey = "wellness:credential:access"

// RedisCredentialStore keeps the access credential under a single redis key,
// so several client processes for the same user share one session.
type RedisCredentialStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedisCredentialStore creates a credential store on key; an empty key
// selects DefaultCredentialKey.
func NewRedisCredentialStore(client redis.UniversalClient, key string) *RedisCredentialStore {
	if key == "" {
		key = DefaultCredentialKey
	}
	return &RedisCredentialStore{client: client, key: key}
}

var _ ports.CredentialStore = (*RedisCredentialStore)(nil)

func (s *RedisCredentialStore) Get(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	return token, nil
}

func (s *RedisCredentialStore) Set(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, s.key, token, 0).Err(); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

func (s *RedisCredentialStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

// RedisRevocationStore is a Redis implementation of ports.RevocationStore
type RedisRevocationStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisRevocationStore creates a new Redis revocation store
func NewRedisRevocationStore(client redis.UniversalClient) *RedisRevocationStore {
	return &RedisRevocationStore{
		client: client,
		prefix: "wellness:invalidated:",
	}
}

var _ ports.RevocationStore = (*RedisRevocationStore)(nil)

// InvalidateToken marks a token as invalidated in Redis
func (s *RedisRevocationStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	key := s.prefix + tokenID

	if err := s.client.Set(ctx, key, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisRevocationStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	key := s.prefix + tokenID

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}

	return val > 0, nil
}
