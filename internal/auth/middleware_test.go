// ABOUTME: Tests for the console route guard middleware
// ABOUTME: Covers public path matching, login redirects with next targets, and identity attachment

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/hris-console/internal/session"
	"github.com/2389/hris-console/internal/token"
)

func TestIsPublicPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"/login", true},
		{"/login/reset", true},
		{"/register-company", true},
		{"/register-company/step-2", true},
		{"/loginx", false},
		{"/dashboard", false},
		{"/settings/user-role-permission", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPublicPath(tt.path), tt.path)
	}
}

// guarded runs req through RequireSession and reports the identity the
// handler saw, if it ran at all.
func guarded(req *http.Request) (*httptest.ResponseRecorder, *session.Identity, bool) {
	var (
		reached bool
		seen    *session.Identity
	)
	handler := RequireSession()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		seen = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen, reached
}

func TestRequireSession_RedirectsAnonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/employees?page=2&q=ana", nil)

	rec, _, reached := guarded(req)

	assert.False(t, reached)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/login?next=%2Femployees%3Fpage%3D2%26q%3Dana", rec.Header().Get("Location"))
}

func TestRequireSession_PublicPathPasses(t *testing.T) {
	rec, seen, reached := guarded(httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.True(t, reached)
	assert.Nil(t, seen)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireSession_EmptyCookieIsAnonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: session.AccessTokenCookie, Value: ""})

	rec, _, reached := guarded(req)

	assert.False(t, reached)
	assert.Equal(t, "/login?next=%2Fdashboard", rec.Header().Get("Location"))
}

func TestRequireSession_RefreshCookieIsEnough(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: session.RefreshTokenCookie, Value: "opaque"})

	rec, seen, reached := guarded(req)

	assert.True(t, reached)
	assert.Nil(t, seen)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireSession_AttachesTokenSubject(t *testing.T) {
	access, err := token.NewIssuer([]byte("secret")).Generate("user-42", token.TypeAccess, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/payrolls", nil)
	req.AddCookie(&http.Cookie{Name: session.AccessTokenCookie, Value: access})

	_, seen, reached := guarded(req)

	require.True(t, reached)
	require.NotNil(t, seen)
	assert.Equal(t, "user-42", seen.ID)
}

func TestIdentityContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, IdentityFromContext(req.Context()))

	ctx := WithIdentity(req.Context(), &ana)
	require.NotNil(t, IdentityFromContext(ctx))
	assert.Equal(t, "u-1", IdentityFromContext(ctx).ID)
}
