package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrValidation          = errors.New("validation failed")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNetwork             = errors.New("network error")
	ErrCancelled           = errors.New("cancelled")
	ErrNotFound            = errors.New("not found")
	ErrServer              = errors.New("server error")

	// Server-side token errors, used by the reference backend.
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidToken     = errors.New("invalid token")
)

// APIError describes a failed call to the backend. It unwraps to one of the
// sentinel errors above so callers can use errors.Is.
type APIError struct {
	Op      string // e.g. "POST /auth/login"
	Status  int    // HTTP status, 0 for transport failures
	Message string // server-provided message, if any
	Err     error
}

func (e *APIError) Error() string {
	msg := e.Err.Error()
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ValidationError reports a rejected field before a request is sent.
func ValidationError(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, field, reason)
}
