// ABOUTME: One-shot reconciliation of the stored session with the backend identity
// ABOUTME: Validates a stored access token through /auth/me and publishes the user to State

package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/2389/hris-console/internal/apiclient"
	"github.com/2389/hris-console/internal/session"
	"github.com/2389/hris-console/internal/store"
)

// Bootstrap errors
var (
	ErrNotHydrated        = errors.New("auth state not hydrated")
	ErrInvalidUserPayload = errors.New("invalid user payload")
)

// Phase is the bootstrap progress.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseResolved
)

func (p Phase) String() string {
	switch p {
	case PhaseValidating:
		return "validating"
	case PhaseResolved:
		return "resolved"
	default:
		return "idle"
	}
}

// Bootstrapper runs the startup identity check once per process.
type Bootstrapper struct {
	client *apiclient.Client
	state  *State
	opts   options

	mu      sync.Mutex
	started bool
	phase   Phase
}

// NewBootstrapper creates a bootstrapper over client's session store.
func NewBootstrapper(client *apiclient.Client, state *State, opts ...Option) *Bootstrapper {
	return &Bootstrapper{
		client: client,
		state:  state,
		opts:   buildOptions("bootstrap", opts),
	}
}

// Phase returns the current phase.
func (b *Bootstrapper) Phase() Phase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

func (b *Bootstrapper) setPhase(p Phase) {
	b.mu.Lock()
	b.phase = p
	b.mu.Unlock()
}

// Run reconciles the stored session with the backend. Before the state is
// hydrated it returns ErrNotHydrated and may be called again; after the
// first real pass every call is a no-op.
//
// A stored access token without a known user is checked against /auth/me.
// An unauthorized answer clears the session and marks it expired; any
// other failure clears the session and logs out.
func (b *Bootstrapper) Run(ctx context.Context) error {
	if !b.state.HasHydrated() {
		return ErrNotHydrated
	}
	if b.state.IsValidating() {
		return nil
	}

	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = true
	b.mu.Unlock()

	sessions := b.client.Sessions()
	current := sessions.Get(ctx)
	if current == nil || current.AccessToken == "" {
		b.opts.logger.Debug("no stored credentials")
		b.setPhase(PhaseResolved)
		return nil
	}
	if b.state.IsAuthenticated() {
		b.setPhase(PhaseResolved)
		return nil
	}

	b.setPhase(PhaseValidating)
	b.state.SetValidating(true)
	defer func() {
		b.state.SetValidating(false)
		b.setPhase(PhaseResolved)
	}()

	user, err := b.fetchIdentity(ctx, current)
	if err != nil {
		if clearErr := sessions.Clear(ctx); clearErr != nil {
			b.opts.logger.Warn("clearing session failed", "error", clearErr)
		}
		if errors.Is(err, apiclient.ErrUnauthorized) {
			b.opts.logger.Info("stored session rejected, marking expired")
			b.state.MarkSessionExpired(ctx)
			b.opts.record(ctx, store.EventSessionExpired, current.User.ID, map[string]any{"source": "bootstrap"})
		} else {
			b.opts.logger.Warn("session validation failed", "error", err)
			b.state.Logout(ctx)
			b.opts.record(ctx, store.EventLogout, current.User.ID, map[string]any{"source": "bootstrap", "error": err.Error()})
		}
		return err
	}

	b.state.Login(ctx, *user)
	b.opts.logger.Info("session restored", "user_id", user.ID)
	b.opts.record(ctx, store.EventBootstrap, user.ID, nil)
	return nil
}

// fetchIdentity asks /auth/me and stores the merged session.
func (b *Bootstrapper) fetchIdentity(ctx context.Context, current *session.Session) (*session.Identity, error) {
	var me any
	if err := b.client.Get(ctx, "/auth/me", &me); err != nil {
		return nil, err
	}
	user := session.NormalizeSessionUser(me)
	if user == nil {
		return nil, ErrInvalidUserPayload
	}

	// A silent refresh during the call rotates the stored pair.
	latest := b.client.Sessions().Get(ctx)
	if err := b.client.Sessions().Set(ctx, mergedSession(me, *user, latest, current)); err != nil {
		return nil, err
	}
	return user, nil
}

// mergedSession prefers tokens from payload and falls back to each
// fallback session in order.
func mergedSession(payload any, user session.Identity, fallbacks ...*session.Session) session.Session {
	tokens := session.ExtractTokens(payload)
	out := session.Session{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken, User: user}
	for _, fb := range fallbacks {
		if fb == nil {
			continue
		}
		if out.AccessToken == "" {
			out.AccessToken = fb.AccessToken
		}
		if out.RefreshToken == "" {
			out.RefreshToken = fb.RefreshToken
		}
	}
	return out
}
