package devbackend

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/layer-3/wellness/core"
)

type userRecord struct {
	identity     core.Identity
	passwordHash []byte
}

// UserStore keeps accounts in memory, indexed by email and username.
type UserStore struct {
	mu         sync.RWMutex
	byID       map[string]*userRecord
	byEmail    map[string]string
	byUsername map[string]string
	bcryptCost int
}

func NewUserStore(bcryptCost int) *UserStore {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserStore{
		byID:       make(map[string]*userRecord),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		bcryptCost: bcryptCost,
	}
}

// Create adds an account. Duplicate emails or usernames are validation
// errors.
func (s *UserStore) Create(ctx context.Context, req core.RegisterRequest) (*core.Identity, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return nil, core.ValidationError("email", "is already registered")
	}
	if _, ok := s.byUsername[strings.ToLower(username)]; ok {
		return nil, core.ValidationError("username", "is already taken")
	}

	now := time.Now().UTC()
	rec := &userRecord{
		identity: core.Identity{
			ID:                uuid.NewString(),
			Email:             email,
			Username:          username,
			PreferredLanguage: "en",
			PreferredTheme:    "light",
			CreatedAt:         now,
			UpdatedAt:         now,
		},
		passwordHash: hash,
	}
	s.byID[rec.identity.ID] = rec
	s.byEmail[email] = rec.identity.ID
	s.byUsername[strings.ToLower(username)] = rec.identity.ID

	identity := rec.identity
	return &identity, nil
}

// Authenticate accepts either the email or the username as login.
func (s *UserStore) Authenticate(ctx context.Context, login, password string) (*core.Identity, error) {
	key := strings.ToLower(strings.TrimSpace(login))

	s.mu.RLock()
	id, ok := s.byEmail[key]
	if !ok {
		id, ok = s.byUsername[key]
	}
	var rec *userRecord
	if ok {
		rec = s.byID[id]
	}
	s.mu.RUnlock()

	if rec == nil {
		return nil, core.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(password)); err != nil {
		return nil, core.ErrInvalidCredentials
	}
	identity := rec.identity
	return &identity, nil
}

func (s *UserStore) Get(ctx context.Context, id string) (*core.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	identity := rec.identity
	return &identity, nil
}
