// ABOUTME: Session store holding the token pair and normalized identity
// ABOUTME: Persists the session JSON to durable storage and mirrors tokens into cookies

package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"github.com/2389/hris-console/internal/token"
)

// Storage keys and cookie names shared with the backend and route guards.
const (
	StorageKey         = "go-hris.session"
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"

	// CookieMaxAge is the lifetime of the mirrored token cookies (7 days).
	CookieMaxAge = 60 * 60 * 24 * 7
)

// Identity is the canonical shape of the logged-in user.
type Identity struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	CompanyID  string `json:"company_id,omitempty"`
	EmployeeID string `json:"employee_id,omitempty"`
	Role       string `json:"role,omitempty"`
}

// HasRBACScope reports whether the identity names both an employee and a company.
func (i *Identity) HasRBACScope() bool {
	return i != nil && i.EmployeeID != "" && i.CompanyID != ""
}

// Tokens is an access/refresh token pair. Either may be empty.
type Tokens struct {
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Session is what the console remembers about the signed-in browser.
type Session struct {
	AccessToken  string   `json:"accessToken,omitempty"`
	RefreshToken string   `json:"refreshToken,omitempty"`
	User         Identity `json:"user"`
}

// Authenticated reports whether the session carries any credential. A cached
// identity without tokens is anonymous.
func (s *Session) Authenticated() bool {
	return s != nil && (s.AccessToken != "" || s.RefreshToken != "")
}

// Tokens returns the session's token pair.
func (s *Session) Tokens() Tokens {
	if s == nil {
		return Tokens{}
	}
	return Tokens{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
}

// OAuth2Token views the session credentials as an oauth2 bearer token. Expiry
// is read from the access token when it is a JWT and left zero otherwise.
func (s *Session) OAuth2Token() *oauth2.Token {
	if s == nil || s.AccessToken == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       token.ExpiresAt(s.AccessToken),
	}
}

// Partial describes a merge onto the current session. A non-nil Tokens
// replaces both token fields together; empty fields clear that token.
type Partial struct {
	Tokens *Tokens
	User   *Identity
}

// Store reads and writes the session. A Store without storage behaves as a
// non-interactive context: every operation is a no-op.
type Store struct {
	mu      sync.Mutex
	storage Storage
	cookies CookieMirror
	logger  *slog.Logger
}

// NewStore creates a session store. storage and cookies may be nil. Pass nil
// logger for default.
func NewStore(storage Storage, cookies CookieMirror, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		storage: storage,
		cookies: cookies,
		logger:  logger.With("component", "session"),
	}
}

// Get returns the stored session, or nil when it is absent or unreadable.
func (s *Store) Get(ctx context.Context) *Session {
	if s == nil || s.storage == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx)
}

func (s *Store) getLocked(ctx context.Context) *Session {
	data, err := s.storage.GetItem(ctx, StorageKey)
	if err != nil {
		s.logger.Warn("reading session failed", "error", err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var sess *Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.logger.Debug("ignoring malformed session", "error", err)
		return nil
	}
	return sess
}

// Set writes the full session and mirrors token presence into cookies.
func (s *Store) Set(ctx context.Context, sess Session) error {
	if s == nil || s.storage == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(ctx, sess)
}

func (s *Store) setLocked(ctx context.Context, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.storage.SetItem(ctx, StorageKey, data); err != nil {
		return err
	}

	s.mirror(AccessTokenCookie, sess.AccessToken)
	s.mirror(RefreshTokenCookie, sess.RefreshToken)

	s.logger.Debug("session written",
		"user_id", sess.User.ID,
		"has_access", sess.AccessToken != "",
		"has_refresh", sess.RefreshToken != "")
	return nil
}

// Merge applies p to the current session and writes the result. It returns
// nil without writing when there is no current session.
func (s *Store) Merge(ctx context.Context, p Partial) (*Session, error) {
	if s == nil || s.storage == nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.getLocked(ctx)
	if current == nil {
		return nil, nil
	}

	merged := *current
	if p.Tokens != nil {
		merged.AccessToken = p.Tokens.AccessToken
		merged.RefreshToken = p.Tokens.RefreshToken
	}
	if p.User != nil {
		merged.User = *p.User
	}

	if err := s.setLocked(ctx, merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Clear removes the stored session and both mirrored cookies. It is safe to
// call repeatedly.
func (s *Store) Clear(ctx context.Context) error {
	if s == nil || s.storage == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.storage.RemoveItem(ctx, StorageKey)
	// cookies are cleared even when storage fails
	s.mirror(AccessTokenCookie, "")
	s.mirror(RefreshTokenCookie, "")

	if err != nil {
		return err
	}
	s.logger.Debug("session cleared")
	return nil
}

// mirror writes name=value, or expires the cookie when value is empty.
func (s *Store) mirror(name, value string) {
	if s.cookies == nil {
		return
	}
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   CookieMaxAge,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		c.MaxAge = -1
	}
	s.cookies.SetCookie(c)
}
