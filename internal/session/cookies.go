// ABOUTME: Cookie mirror that projects token presence into an HTTP cookie jar
// ABOUTME: The same jar backs the API client so cookies travel with every request

package session

import (
	"net/http"
	"net/url"
)

// CookieMirror receives the access/refresh cookies whenever the session is written.
type CookieMirror interface {
	SetCookie(c *http.Cookie)
}

// JarMirror writes cookies into an http.CookieJar for a single origin.
type JarMirror struct {
	jar    http.CookieJar
	origin *url.URL
}

// NewJarMirror mirrors cookies into jar for the origin of baseURL.
func NewJarMirror(jar http.CookieJar, baseURL string) (*JarMirror, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &JarMirror{jar: jar, origin: &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}}, nil
}

func (m *JarMirror) SetCookie(c *http.Cookie) {
	m.jar.SetCookies(m.origin, []*http.Cookie{c})
}

// Value returns the current value of the named cookie for the origin.
func (m *JarMirror) Value(name string) (string, bool) {
	for _, c := range m.jar.Cookies(m.origin) {
		if c.Name == name && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}
