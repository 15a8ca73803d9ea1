package ports

import (
	"context"
	"time"
)

// CredentialStore holds the single active access credential. An empty
// token from Get means no credential is stored. Set and Clear replace the
// whole value in one write.
type CredentialStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// RevocationStore records invalidated refresh tokens on the backend side.
type RevocationStore interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}
