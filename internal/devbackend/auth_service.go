package devbackend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/layer-3/wellness/core"
	"github.com/layer-3/wellness/ports"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenPair is what login, register and refresh hand out. The refresh token
// only ever travels in the refresh cookie.
type TokenPair struct {
	Access  string
	Refresh string
}

// AuthService handles authentication business logic
type AuthService struct {
	tokenizer   ports.Tokenizer
	revocations ports.RevocationStore
	users       *UserStore
	eventPub    ports.EventPublisher
	logger      *slog.Logger

	// generation is stamped into access tokens; tokens from an older
	// generation are rejected as expired.
	generation atomic.Int64

	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tokenizer ports.Tokenizer,
	revocations ports.RevocationStore,
	users *UserStore,
	eventPub ports.EventPublisher,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		tokenizer:   tokenizer,
		revocations: revocations,
		users:       users,
		eventPub:    eventPub,
		logger:      logger,
		accessTTL:   DefaultAccessTTL,
		refreshTTL:  DefaultRefreshTTL,
	}
}

// SetTTLs overrides token lifetimes; zero keeps the current value.
func (s *AuthService) SetTTLs(access, refresh time.Duration) {
	if access > 0 {
		s.accessTTL = access
	}
	if refresh > 0 {
		s.refreshTTL = refresh
	}
}

func (s *AuthService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// Register creates the account and signs it in.
func (s *AuthService) Register(ctx context.Context, req core.RegisterRequest) (*core.Identity, *TokenPair, error) {
	user, err := s.users.Create(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	pair, err := s.issue(user.ID)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, pair, nil
}

// Login authenticates by email or username and password.
func (s *AuthService) Login(ctx context.Context, req core.LoginRequest) (*core.Identity, *TokenPair, error) {
	user, err := s.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, nil, err
	}
	pair, err := s.issue(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh rotates the refresh token and issues new access and refresh tokens
func (s *AuthService) Refresh(ctx context.Context, refreshTokenStr string) (*core.Identity, *TokenPair, error) {
	grant, err := s.tokenizer.RefreshTokenToGrant(refreshTokenStr)
	if err != nil {
		return nil, nil, err
	}

	if time.Now().After(grant.RefreshExpiry) {
		return nil, nil, core.ErrTokenExpired
	}

	invalidated, err := s.revocations.IsTokenInvalidated(ctx, grant.RefreshID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	if invalidated {
		return nil, nil, core.ErrTokenInvalidated
	}

	// The old refresh token stays revoked for as long as it would have lived.
	if err := s.revocations.InvalidateToken(ctx, grant.RefreshID, time.Until(grant.RefreshExpiry)); err != nil {
		return nil, nil, fmt.Errorf("failed to invalidate old token: %w", err)
	}

	user, err := s.users.Get(ctx, grant.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: unknown subject", core.ErrInvalidToken)
	}
	pair, err := s.issue(user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Logout invalidates a refresh token
func (s *AuthService) Logout(ctx context.Context, refreshTokenStr string) error {
	grant, err := s.tokenizer.RefreshTokenToGrant(refreshTokenStr)
	if errors.Is(err, core.ErrTokenExpired) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.revocations.InvalidateToken(ctx, grant.RefreshID, time.Until(grant.RefreshExpiry)); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	event := core.SessionEvent{Kind: core.SessionLoggedOut, UserID: grant.UserID, At: time.Now().UTC()}
	if err := s.eventPub.Publish(ctx, event); err != nil {
		// The token is already revoked, which is what matters.
		s.logger.Warn("failed to publish logout event", "error", err)
	}
	return nil
}

// ValidateAccessToken returns the grant behind a valid access token.
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Grant, error) {
	grant, err := s.tokenizer.AccessTokenToGrant(accessToken)
	if err != nil {
		return nil, err
	}

	if time.Now().After(grant.AccessExpiry) || grant.Generation < s.generation.Load() {
		return nil, core.ErrTokenExpired
	}

	// Revoking a refresh token also revokes the access tokens issued with it.
	if grant.RefreshID != "" {
		invalidated, err := s.revocations.IsTokenInvalidated(ctx, grant.RefreshID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token invalidation: %w", err)
		}
		if invalidated {
			return nil, core.ErrTokenInvalidated
		}
	}

	return grant, nil
}

// ExpireAccessTokens makes every access token issued so far fail validation
// as expired. Refresh tokens keep working.
func (s *AuthService) ExpireAccessTokens() {
	s.generation.Add(1)
}

func (s *AuthService) User(ctx context.Context, id string) (*core.Identity, error) {
	return s.users.Get(ctx, id)
}

func (s *AuthService) issue(userID string) (*TokenPair, error) {
	now := time.Now()
	grant := &core.Grant{
		ID:            uuid.New().String(),
		UserID:        userID,
		Generation:    s.generation.Load(),
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.refreshTTL),
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshID:     uuid.New().String(),
	}

	accessToken, err := s.tokenizer.GrantToAccessToken(grant)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}
	refreshToken, err := s.tokenizer.GrantToRefreshToken(grant)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}
	return &TokenPair{Access: accessToken, Refresh: refreshToken}, nil
}
