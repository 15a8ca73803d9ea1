package core

import "time"

// Grant is the backend's view of an issued access/refresh pair. The client
// never decodes tokens; only the reference backend works with grants.
type Grant struct {
	ID            string    // Unique grant identifier (access token jti)
	UserID        string    // Subject of both tokens
	Generation    int64     // Access generation; bumped to expire outstanding access tokens
	IssuedAt      time.Time // When the pair was created
	RefreshExpiry time.Time // When the refresh capability expires
	AccessExpiry  time.Time // When the access capability expires
	RefreshID     string    // Unique identifier for the refresh token
}
