package core

import (
	"net/mail"
	"strings"
	"time"
)

// Identity is the authenticated user's profile as returned by /auth/me.
type Identity struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Username          string    `json:"username"`
	PreferredLanguage string    `json:"preferred_language"`
	PreferredTheme    string    `json:"preferred_theme"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AuthResult is the body returned by login, register and refresh.
type AuthResult struct {
	User  Identity `json:"user"`
	Token string   `json:"token"`
}

// LoginRequest carries either an email or a username in Email.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return ValidationError("email", "is required")
	}
	if r.Password == "" {
		return ValidationError("password", "is required")
	}
	return nil
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r RegisterRequest) Validate() error {
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return ValidationError("email", "is not a valid address")
	}
	if strings.TrimSpace(r.Username) == "" {
		return ValidationError("username", "is required")
	}
	if r.Password == "" {
		return ValidationError("password", "is required")
	}
	return nil
}
