// ABOUTME: Tests for interactive sign-in and sign-out
// ABOUTME: Covers token storage, profile loading, navigation, error mapping, and best-effort logout

package auth

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/hris-console/internal/apiclient"
	"github.com/2389/hris-console/internal/hrisfake"
	"github.com/2389/hris-console/internal/session"
	"github.com/2389/hris-console/internal/store"
)

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	want, ok := h.fake.UserByEmail(adminEmail)
	require.True(t, ok)

	user, err := h.loginFlow().Login(ctx, adminEmail, hrisfake.DemoPassword, "")
	require.NoError(t, err)

	assert.Equal(t, want.ID, user.ID)
	assert.Equal(t, want.EmployeeID, user.EmployeeID)
	assert.Equal(t, want.CompanyID, user.CompanyID)
	assert.Equal(t, "admin", user.Role)

	sess := h.sessions.Get(ctx)
	require.NotNil(t, sess)
	assert.NotEmpty(t, sess.AccessToken)
	assert.NotEmpty(t, sess.RefreshToken)
	assert.Equal(t, want.ID, sess.User.ID)

	require.NotNil(t, h.state.User())
	assert.Equal(t, *user, *h.state.User())
	assert.Equal(t, DefaultLandingPath, h.lastLocation())
	assert.Equal(t, []store.EventKind{store.EventLogin}, h.eventKinds(t))
}

func TestLogin_NextTarget(t *testing.T) {
	h := newHarness(t)

	_, err := h.loginFlow().Login(context.Background(), employeeEmail, hrisfake.DemoPassword, "/leaves?tab=mine")
	require.NoError(t, err)

	assert.Equal(t, "/leaves?tab=mine", h.lastLocation())
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.loginFlow().Login(ctx, adminEmail, "wrong-password", "")

	require.ErrorIs(t, err, apiclient.ErrUnauthorized)
	assert.Equal(t, "Invalid email or password", apiclient.Message(err, "Login failed"))
	assert.Nil(t, h.sessions.Get(ctx))
	assert.False(t, h.state.IsAuthenticated())
	assert.Equal(t, 0, h.fake.Calls("POST /api/v1/auth/refresh"))
	assert.Empty(t, h.history.Replaced())
}

func TestLogin_MissingFields(t *testing.T) {
	h := newHarness(t)

	_, err := h.loginFlow().Login(context.Background(), adminEmail, "", "")

	require.ErrorIs(t, err, apiclient.ErrValidation)
	form := apiclient.ResolveFormError(err, "Login failed")
	assert.Contains(t, form.FieldErrors, "password")
}

func TestLogin_ProfileUnavailable(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, `{"success":true,"data":{"access_token":"a1","refresh_token":"r1"}}`)
	})
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, `{"success":true,"data":{}}`)
	})
	h := newHarnessWith(t, mux)

	_, err := h.loginFlow().Login(ctx, "ana@example.com", "secret", "")

	assert.ErrorIs(t, err, ErrProfileUnavailable)
	assert.False(t, h.state.IsAuthenticated())

	sess := h.sessions.Get(ctx)
	require.NotNil(t, sess)
	assert.Equal(t, session.Identity{ID: pendingUserID, Email: "ana@example.com", Name: "ana@example.com"}, sess.User)
	assert.Equal(t, "a1", sess.AccessToken)
}

func TestLogin_TokenPrecedence(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusOK, `{"access_token":"login-access","refresh_token":"login-refresh"}`)
	})
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer login-access", r.Header.Get("Authorization"))
		writeTestJSON(w, http.StatusOK, `{"user":{"id":7,"email":"ana@example.com","company_id":"c-1","employee_id":"e-1"},"accessToken":"me-access"}`)
	})
	h := newHarnessWith(t, mux)

	user, err := h.loginFlow().Login(ctx, "ana@example.com", "secret", "")
	require.NoError(t, err)
	assert.Equal(t, "7", user.ID)

	sess := h.sessions.Get(ctx)
	require.NotNil(t, sess)
	assert.Equal(t, "me-access", sess.AccessToken)
	assert.Equal(t, "login-refresh", sess.RefreshToken)
}

func TestLogout_ClearsEverything(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.signIn(t, adminEmail)

	allowed, err := h.resolver.Can(ctx, "employee", "read")
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 1, h.decision.Len())

	require.NoError(t, h.loginFlow().Logout(ctx))

	assert.Equal(t, 1, h.fake.Calls(logoutRoute))
	assert.Nil(t, h.sessions.Get(ctx))
	assert.False(t, h.state.IsAuthenticated())
	assert.Equal(t, 0, h.decision.Len())
	assert.Equal(t, LoginPath, h.lastLocation())
	assert.Equal(t, []store.EventKind{store.EventLogin, store.EventLogout}, h.eventKinds(t))
}

func TestLogout_BackendFailureIgnored(t *testing.T) {
	ctx := context.Background()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, http.StatusUnauthorized, `{"message":"expired"}`)
	})
	h := newHarnessWith(t, mux)
	h.history.Navigate("/employees")
	require.NoError(t, h.sessions.Set(ctx, session.Session{AccessToken: "a", RefreshToken: "r"}))
	h.state.Login(ctx, ana)

	flow := NewLoginFlow(h.client, h.state, nil, h.history)
	require.NoError(t, flow.Logout(ctx))

	assert.Nil(t, h.sessions.Get(ctx))
	assert.False(t, h.state.IsAuthenticated())
	assert.Equal(t, []string{LoginPath}, h.history.Replaced())
}

func TestLogout_ResolverOptional(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, employeeEmail)

	flow := NewLoginFlow(h.client, h.state, nil, nil)
	require.NoError(t, flow.Logout(context.Background()))
	assert.False(t, h.state.IsAuthenticated())
}
