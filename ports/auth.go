package ports

import (
	"context"

	"github.com/layer-3/wellness/core"
)

// AuthAPI is the backend's authentication boundary.
type AuthAPI interface {
	Login(ctx context.Context, req core.LoginRequest) (*core.AuthResult, error)
	Register(ctx context.Context, req core.RegisterRequest) (*core.AuthResult, error)
	// Refresh exchanges the long-lived credential held by the transport for
	// a new access credential.
	Refresh(ctx context.Context) (*core.AuthResult, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*core.Identity, error)
}

// Refresher hands out a fresh access credential, sharing one refresh call
// between concurrent callers.
type Refresher interface {
	RequestRefresh(ctx context.Context) (string, error)
}
