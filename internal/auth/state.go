// ABOUTME: Process-wide authentication flags shared by bootstrap, login, and expiry handling
// ABOUTME: Persists only the user under the auth-storage key and rehydrates it on start

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/hris-console/internal/session"
)

// StateStorageKey is where State persists itself.
const StateStorageKey = "auth-storage"

// persistedState is the stored form of State. The lifecycle flags are
// per-process and never written.
type persistedState struct {
	State struct {
		User *session.Identity `json:"user"`
	} `json:"state"`
	Version int `json:"version"`
}

// Snapshot is a point-in-time copy of the flags.
type Snapshot struct {
	User             *session.Identity
	HasHydrated      bool
	IsValidating     bool
	IsLoggingOut     bool
	IsSessionExpired bool
}

// State holds the signed-in user and the auth lifecycle flags.
type State struct {
	mu         sync.RWMutex
	user       *session.Identity
	hydrated   bool
	validating bool
	loggingOut bool
	expired    bool

	storage session.Storage
	logger  *slog.Logger
}

// NewState creates empty flags persisted to storage. A nil storage keeps
// the state in memory only.
func NewState(storage session.Storage, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	return &State{storage: storage, logger: logger.With("component", "auth_state")}
}

// Hydrate loads the persisted user and expiry flag, then marks the state
// hydrated. Unreadable data is discarded.
func (s *State) Hydrate(ctx context.Context) error {
	var loadErr error
	if s.storage != nil {
		raw, err := s.storage.GetItem(ctx, StateStorageKey)
		switch {
		case err != nil:
			loadErr = fmt.Errorf("reading auth state: %w", err)
		case raw != nil:
			var p persistedState
			if err := json.Unmarshal(raw, &p); err != nil {
				s.logger.Warn("discarding unreadable auth state", "error", err)
			} else {
				s.mu.Lock()
				s.user = p.State.User
				s.mu.Unlock()
			}
		}
	}

	s.SetHydrated()
	return loadErr
}

// Snapshot returns a copy of the current flags.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		User:             cloneIdentity(s.user),
		HasHydrated:      s.hydrated,
		IsValidating:     s.validating,
		IsLoggingOut:     s.loggingOut,
		IsSessionExpired: s.expired,
	}
}

// User returns the signed-in user, or nil.
func (s *State) User() *session.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneIdentity(s.user)
}

func (s *State) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

func (s *State) HasHydrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hydrated
}

func (s *State) IsValidating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validating
}

func (s *State) IsLoggingOut() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggingOut
}

func (s *State) IsSessionExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expired
}

// Login publishes user and clears the expired flag.
func (s *State) Login(ctx context.Context, user session.Identity) {
	s.mu.Lock()
	s.user = &user
	s.expired = false
	s.mu.Unlock()
	s.persist(ctx)
}

// Logout clears the user and the logging-out and expired flags.
func (s *State) Logout(ctx context.Context) {
	s.mu.Lock()
	s.user = nil
	s.loggingOut = false
	s.expired = false
	s.mu.Unlock()
	s.persist(ctx)
}

// MarkSessionExpired clears the user and sets the expired flag.
func (s *State) MarkSessionExpired(ctx context.Context) {
	s.mu.Lock()
	s.user = nil
	s.expired = true
	s.mu.Unlock()
	s.persist(ctx)
}

func (s *State) SetHydrated() {
	s.mu.Lock()
	s.hydrated = true
	s.mu.Unlock()
}

func (s *State) SetValidating(v bool) {
	s.mu.Lock()
	s.validating = v
	s.mu.Unlock()
}

func (s *State) SetLoggingOut(v bool) {
	s.mu.Lock()
	s.loggingOut = v
	s.mu.Unlock()
}

// BeginLoggingOut sets the logging-out flag and reports whether it was
// clear before. Only the caller that gets true may run a logout sequence.
func (s *State) BeginLoggingOut() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loggingOut {
		return false
	}
	s.loggingOut = true
	return true
}

func (s *State) persist(ctx context.Context) {
	if s.storage == nil {
		return
	}

	var p persistedState
	s.mu.RLock()
	p.State.User = cloneIdentity(s.user)
	s.mu.RUnlock()

	raw, err := json.Marshal(p)
	if err != nil {
		s.logger.Error("encoding auth state", "error", err)
		return
	}
	if err := s.storage.SetItem(ctx, StateStorageKey, raw); err != nil {
		s.logger.Warn("persisting auth state failed", "error", err)
	}
}

func cloneIdentity(u *session.Identity) *session.Identity {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
