// ABOUTME: Shared test harness wiring the auth components to an in-process backend
// ABOUTME: Uses the fake HRIS server, a cookie jar, and a SQLite store for sessions and history

package auth

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/2389/hris-console/internal/apiclient"
	"github.com/2389/hris-console/internal/hrisfake"
	"github.com/2389/hris-console/internal/query"
	"github.com/2389/hris-console/internal/rbac"
	"github.com/2389/hris-console/internal/session"
	"github.com/2389/hris-console/internal/store"
)

const (
	adminEmail    = "admin@example.com"
	employeeEmail = "employee@example.com"
)

type harness struct {
	fake     *hrisfake.Server // nil when a custom handler is used
	server   *httptest.Server
	db       *store.SQLiteStore
	sessions *session.Store
	client   *apiclient.Client
	history  *apiclient.History
	state    *State
	queries  *query.Cache
	decision *rbac.MemoryCache
	resolver *rbac.Resolver
}

// newHarness starts a demo backend and a hydrated, signed-out console.
func newHarness(t *testing.T) *harness {
	t.Helper()
	fake, err := hrisfake.NewDemo([]byte("test-secret"))
	require.NoError(t, err)
	h := newHarnessWith(t, fake)
	h.fake = fake
	return h
}

// newHarnessWith runs the console against handler.
func newHarnessWith(t *testing.T, handler http.Handler) *harness {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "console.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	mirror, err := session.NewJarMirror(jar, server.URL)
	require.NoError(t, err)

	sessions := session.NewStore(db, mirror, nil)
	history := apiclient.NewHistory("/login", nil)
	client := apiclient.New(server.URL, sessions,
		apiclient.WithHTTPClient(&http.Client{Jar: jar}),
		apiclient.WithNavigator(history))

	state := NewState(db, nil)
	require.NoError(t, state.Hydrate(context.Background()))

	queries := query.New(nil)
	t.Cleanup(queries.Close)

	decisions := rbac.NewMemoryCache(64)
	t.Cleanup(func() { decisions.Close() })

	return &harness{
		server:   server,
		db:       db,
		sessions: sessions,
		client:   client,
		history:  history,
		state:    state,
		queries:  queries,
		decision: decisions,
		resolver: rbac.NewResolver(client, rbac.WithCache(decisions)),
	}
}

func (h *harness) loginFlow() *LoginFlow {
	return NewLoginFlow(h.client, h.state, h.resolver, h.history, WithRecorder(h.db))
}

// signIn logs email in with the demo password.
func (h *harness) signIn(t *testing.T, email string) *session.Identity {
	t.Helper()
	user, err := h.loginFlow().Login(context.Background(), email, hrisfake.DemoPassword, "")
	require.NoError(t, err)
	return user
}

// lastLocation returns the most recent navigator replacement.
func (h *harness) lastLocation() string {
	replaced := h.history.Replaced()
	if len(replaced) == 0 {
		return ""
	}
	return replaced[len(replaced)-1]
}

// eventKinds lists recorded session events, oldest first.
func (h *harness) eventKinds(t *testing.T) []store.EventKind {
	t.Helper()
	events, err := h.db.ListSessionEvents(context.Background(), 0)
	require.NoError(t, err)
	kinds := make([]store.EventKind, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		kinds = append(kinds, events[i].Kind)
	}
	return kinds
}
