// ABOUTME: Watches query results for session-invalidating failures and logs the user out once
// ABOUTME: Serializes concurrent failures through the logging-out flag so the sequence runs a single time

package auth

import (
	"context"
	"sync/atomic"

	"github.com/2389/hris-console/internal/apiclient"
	"github.com/2389/hris-console/internal/query"
	"github.com/2389/hris-console/internal/store"
)

// LoginPath is where the user lands after a forced logout.
const LoginPath = "/login"

// ExpiryWatcher turns a rejected session seen by any query into one logout.
type ExpiryWatcher struct {
	client    *apiclient.Client
	state     *State
	queries   *query.Cache
	navigator apiclient.Navigator
	opts      options

	// running spans the whole sequence; State.Logout resets the
	// logging-out flag before the redirect.
	running atomic.Bool
}

// NewExpiryWatcher creates a watcher over queries' events.
func NewExpiryWatcher(client *apiclient.Client, state *State, queries *query.Cache, navigator apiclient.Navigator, opts ...Option) *ExpiryWatcher {
	return &ExpiryWatcher{
		client:    client,
		state:     state,
		queries:   queries,
		navigator: navigator,
		opts:      buildOptions("expiry_watcher", opts),
	}
}

// Start subscribes to the query cache and handles events on a new
// goroutine. The returned channel closes when ctx is cancelled or the cache
// closes.
func (w *ExpiryWatcher) Start(ctx context.Context) <-chan struct{} {
	events, subID := w.queries.Subscribe(ctx)
	w.opts.logger.Debug("watching query events", "sub_id", subID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				w.Handle(ctx, ev)
			}
		}
	}()
	return done
}

// Run handles query events until ctx is cancelled or the cache closes.
func (w *ExpiryWatcher) Run(ctx context.Context) error {
	<-w.Start(ctx)
	return ctx.Err()
}

// Handle reacts to a single query event. It returns true when the event
// started the logout sequence.
func (w *ExpiryWatcher) Handle(ctx context.Context, ev query.Event) bool {
	if ev.Type != query.EventUpdated || ev.Err == nil {
		return false
	}
	if !apiclient.IsSessionInvalidating(ev.Err) {
		return false
	}
	if w.state.IsSessionExpired() {
		return false
	}
	// Nothing to end when neither the state nor the store holds a session.
	if !w.state.IsAuthenticated() && !w.client.Sessions().Get(ctx).Authenticated() {
		return false
	}
	w.opts.logger.Info("query rejected by backend, ending session", "key", ev.Key)
	return w.Expire(ctx)
}

// Expire runs the logout sequence unless one is already in flight. It
// returns false when another caller holds the sequence.
func (w *ExpiryWatcher) Expire(ctx context.Context) bool {
	if !w.running.CompareAndSwap(false, true) {
		return false
	}
	defer w.running.Store(false)
	if !w.state.BeginLoggingOut() {
		return false
	}
	defer w.state.SetLoggingOut(false)

	var userID string
	if u := w.state.User(); u != nil {
		userID = u.ID
	}

	w.state.MarkSessionExpired(ctx)

	err := w.client.Do(ctx, apiclient.Request{
		Method:        "POST",
		Path:          "/api/v1/auth/logout",
		SkipAuthRetry: true,
		KeepSession:   true,
	}, nil)
	if err != nil {
		w.opts.logger.Debug("backend logout failed", "error", err)
	}

	if err := w.client.Sessions().Clear(ctx); err != nil {
		w.opts.logger.Warn("clearing session failed", "error", err)
	}
	w.state.Logout(ctx)
	if w.navigator != nil {
		w.navigator.Replace(LoginPath)
	}

	w.opts.record(ctx, store.EventSessionExpired, userID, map[string]any{"source": "query"})
	return true
}
