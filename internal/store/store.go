// ABOUTME: Store types and errors for local console persistence
// ABOUTME: Defines the session event log entities shared by the SQLite implementation

package store

import "time"

// EventKind names a session lifecycle transition.
type EventKind string

const (
	EventLogin          EventKind = "login"
	EventLogout         EventKind = "logout"
	EventRefresh        EventKind = "refresh"
	EventSessionExpired EventKind = "session_expired"
	EventBootstrap      EventKind = "bootstrap"
)

// ValidEventKinds lists all recordable event kinds.
var ValidEventKinds = []EventKind{
	EventLogin,
	EventLogout,
	EventRefresh,
	EventSessionExpired,
	EventBootstrap,
}

// SessionEvent is one entry of the local session history.
type SessionEvent struct {
	ID        string         // UUID v4
	Kind      EventKind      // what happened
	UserID    string         // identity at the time, empty when anonymous
	Timestamp time.Time      // when it happened
	Detail    map[string]any // additional context
}
