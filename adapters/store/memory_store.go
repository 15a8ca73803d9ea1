package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/wellness/ports"
)

// MemoryCredentialStore keeps the access credential in process memory.
type MemoryCredentialStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryCredentialStore creates an empty in-memory credential store
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

var _ ports.CredentialStore = (*MemoryCredentialStore)(nil)

func (s *MemoryCredentialStore) Get(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *MemoryCredentialStore) Set(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryCredentialStore) Clear(ctx context.Context) error {
	return s.Set(ctx, "")
}

// MemoryRevocationStore is an in-memory implementation of ports.RevocationStore
type MemoryRevocationStore struct {
	invalidatedTokens map[string]time.Time
	mu                sync.RWMutex
}

// NewMemoryRevocationStore creates a new in-memory revocation store
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		invalidatedTokens: make(map[string]time.Time),
	}
}

var _ ports.RevocationStore = (*MemoryRevocationStore)(nil)

// InvalidateToken marks a token as invalidated until expiry elapses
func (s *MemoryRevocationStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiryTime := time.Now().Add(expiry)
	s.invalidatedTokens[tokenID] = expiryTime

	time.AfterFunc(expiry, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		// Only delete if the record was not extended in the meantime
		if storedExpiry, exists := s.invalidatedTokens[tokenID]; exists && !storedExpiry.After(expiryTime) {
			delete(s.invalidatedTokens, tokenID)
		}
	})

	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryRevocationStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}

	return time.Now().Before(expiryTime), nil
}
