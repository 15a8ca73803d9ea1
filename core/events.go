package core

import "time"

// SessionEventKind names a session lifecycle transition published to the
// presentation layer.
type SessionEventKind string

const (
	SessionAuthenticated SessionEventKind = "session.authenticated"
	SessionLoggedOut     SessionEventKind = "session.logged_out"
	// SessionExpired replaces the login redirect: subscribers decide how to
	// send the user back to the entry page.
	SessionExpired SessionEventKind = "session.expired"
)

type SessionEvent struct {
	Kind   SessionEventKind `json:"kind"`
	UserID string           `json:"user_id,omitempty"`
	Reason string           `json:"reason,omitempty"`
	At     time.Time        `json:"at"`
}
