// ABOUTME: HTTP middleware guarding console pages behind the session cookies
// ABOUTME: Redirects anonymous requests to the login page and attaches token claims to the context

package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/2389/hris-console/internal/session"
	"github.com/2389/hris-console/internal/token"
)

// PublicPaths are reachable without a session. Each also covers its subpaths.
var PublicPaths = []string{"/", "/login", "/register-company"}

// IsPublicPath reports whether path needs no session.
func IsPublicPath(path string) bool {
	for _, p := range PublicPaths {
		if path == p {
			return true
		}
		if p != "/" && strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// hasSessionCookie reports whether r carries either session cookie.
func hasSessionCookie(r *http.Request) bool {
	for _, name := range []string{session.AccessTokenCookie, session.RefreshTokenCookie} {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return true
		}
	}
	return false
}

// loginRedirect builds the login URL that returns to r's path and query.
func loginRedirect(r *http.Request) string {
	next := r.URL.Path
	if r.URL.RawQuery != "" {
		next += "?" + r.URL.RawQuery
	}
	return LoginPath + "?next=" + url.QueryEscape(next)
}

// RequireSession redirects requests for non-public paths without a session
// cookie to the login page. Requests that pass get whatever identity the
// access token names attached to their context.
func RequireSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if !hasSessionCookie(r) {
				http.Redirect(w, r, loginRedirect(r), http.StatusTemporaryRedirect)
				return
			}
			if id := identityFromCookie(r); id != nil {
				r = r.WithContext(WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// identityFromCookie reads the access token subject without verifying it.
// The backend remains the authority; the subject is for display only.
func identityFromCookie(r *http.Request) *session.Identity {
	c, err := r.Cookie(session.AccessTokenCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	claims, err := token.Inspect(c.Value)
	if err != nil || claims.Subject == "" {
		return nil
	}
	return &session.Identity{ID: claims.Subject}
}
