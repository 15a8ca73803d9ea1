package http

import (
	"context"
	"net/http"

	"github.com/layer-3/wellness/core"
	"github.com/layer-3/wellness/ports"
)

// AuthAPI calls the backend's /auth endpoints through a Client.
type AuthAPI struct {
	client *Client
}

var _ ports.AuthAPI = (*AuthAPI)(nil)

func NewAuthAPI(client *Client) *AuthAPI {
	return &AuthAPI{client: client}
}

func (a *AuthAPI) Login(ctx context.Context, req core.LoginRequest) (*core.AuthResult, error) {
	var result core.AuthResult
	if err := a.client.Do(ctx, http.MethodPost, PathLogin, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *AuthAPI) Register(ctx context.Context, req core.RegisterRequest) (*core.AuthResult, error) {
	var result core.AuthResult
	if err := a.client.Do(ctx, http.MethodPost, PathRegister, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Refresh calls the refresh endpoint directly. It does not touch the
// credential store; use the client's coordinator for that.
func (a *AuthAPI) Refresh(ctx context.Context) (*core.AuthResult, error) {
	var result core.AuthResult
	if err := a.client.Do(ctx, http.MethodPost, PathRefresh, struct{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (a *AuthAPI) Logout(ctx context.Context) error {
	return a.client.Do(ctx, http.MethodPost, PathLogout, struct{}{}, nil)
}

func (a *AuthAPI) Me(ctx context.Context) (*core.Identity, error) {
	var identity core.Identity
	if err := a.client.Do(ctx, http.MethodGet, PathMe, nil, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}
