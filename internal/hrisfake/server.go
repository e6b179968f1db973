// ABOUTME: In-process fake of the HRIS REST backend for tests and local development
// ABOUTME: Issues JWT pairs, enforces role permissions, and exposes toggles for failure scenarios

package hrisfake

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/hris-console/internal/token"
)

// Token lifetimes used unless overridden.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Cookie names set on login and refresh.
const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

// dummyHash keeps unknown-email logins as slow as wrong-password ones.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// ErrDuplicateEmail is returned by AddUser for an email already in use.
var ErrDuplicateEmail = errors.New("email already registered")

// Server is an http.Handler that behaves like the HRIS backend.
type Server struct {
	mu          sync.Mutex
	issuer      *token.Issuer
	users       map[string]*User // id -> user
	byEmail     map[string]*User
	roles       map[string]*Role // id -> role
	catalog     []Permission
	access      map[string]string // jti -> user id
	refresh     map[string]string // jti -> user id
	calls       map[string]int    // route pattern -> count
	accessTTL   time.Duration
	refreshTTL  time.Duration
	failRefresh bool
	rejectAll   bool
	nextID      int

	mux    *http.ServeMux
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAccessTTL sets the access token lifetime.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) { s.accessTTL = d }
}

// WithLogger sets the logger. Nil keeps the default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an empty backend with the default roles and catalog.
func New(secret []byte, opts ...Option) *Server {
	s := &Server{
		issuer:     token.NewIssuer(secret),
		users:      make(map[string]*User),
		byEmail:    make(map[string]*User),
		roles:      make(map[string]*Role),
		access:     make(map[string]string),
		refresh:    make(map[string]string),
		calls:      make(map[string]int),
		catalog:    defaultCatalog(),
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "hrisfake")

	for _, r := range defaultRoles(s.catalog) {
		s.roles[r.ID] = r
	}
	s.routes()
	return s
}

// NewDemo creates a backend seeded with one user per role, all using DemoPassword.
func NewDemo(secret []byte, opts ...Option) (*Server, error) {
	s := New(secret, opts...)
	for _, u := range seedUsers {
		if _, err := s.AddUser(u.email, DemoPassword, u.name, u.role); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// AddUser registers an active user with an employee record in DefaultCompanyID.
func (s *Server) AddUser(email, password, fullName, role string) (*User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	if _, exists := s.byEmail[key]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEmail, email)
	}

	s.nextID++
	u := &User{
		ID:             fmt.Sprintf("user-%d", s.nextID),
		Email:          email,
		FullName:       fullName,
		CompanyID:      DefaultCompanyID,
		EmployeeID:     fmt.Sprintf("emp-%d", s.nextID),
		EmployeeNumber: fmt.Sprintf("E%04d", s.nextID),
		Role:           role,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
		passwordHash:   hash,
	}
	s.users[u.ID] = u
	s.byEmail[key] = u
	return u, nil
}

// UserByEmail looks up a user.
func (s *Server) UserByEmail(email string) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byEmail[strings.ToLower(email)]
	return u, ok
}

// SetFailRefresh makes every refresh attempt fail with 401.
func (s *Server) SetFailRefresh(fail bool) {
	s.mu.Lock()
	s.failRefresh = fail
	s.mu.Unlock()
}

// SetRejectAll makes every authenticated endpoint answer 401, even for
// freshly refreshed tokens.
func (s *Server) SetRejectAll(reject bool) {
	s.mu.Lock()
	s.rejectAll = reject
	s.mu.Unlock()
}

// ExpireAccessTokens invalidates every issued access token. Refresh tokens
// stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	s.access = make(map[string]string)
	s.mu.Unlock()
}

// Calls returns how often the route pattern (for example
// "POST /api/v1/auth/refresh") was hit.
func (s *Server) Calls(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[pattern]
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[pattern]++
		s.mu.Unlock()
		s.logger.Debug("request", "route", pattern, "path", r.URL.Path)
		h(w, r)
	})
}

// authed wraps h with bearer or cookie authentication.
func (s *Server) authed(h func(w http.ResponseWriter, r *http.Request, u *User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := s.authenticate(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}
		h(w, r, u)
	}
}

func (s *Server) authenticate(r *http.Request) (*User, bool) {
	raw := bearer(r)
	if raw == "" {
		if c, err := r.Cookie(accessCookie); err == nil {
			raw = c.Value
		}
	}
	if raw == "" {
		return nil, false
	}

	claims, err := s.issuer.Verify(raw, token.TypeAccess)
	if err != nil {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectAll {
		return nil, false
	}
	userID, ok := s.access[claims.ID]
	if !ok || userID != claims.Subject {
		return nil, false
	}
	u, ok := s.users[userID]
	return u, ok && u.Active
}

// issuePair mints and registers a token pair for u.
func (s *Server) issuePair(u *User) (string, string, error) {
	access, err := s.issuer.Generate(u.ID, token.TypeAccess, s.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err := s.issuer.Generate(u.ID, token.TypeRefresh, s.refreshTTL)
	if err != nil {
		return "", "", err
	}
	accessClaims, _ := token.Inspect(access)
	refreshClaims, _ := token.Inspect(refresh)

	s.mu.Lock()
	s.access[accessClaims.ID] = u.ID
	s.refresh[refreshClaims.ID] = u.ID
	s.mu.Unlock()
	return access, refresh, nil
}

func (s *Server) setAuthCookies(w http.ResponseWriter, access, refresh string) {
	for name, value := range map[string]string{accessCookie: access, refreshCookie: refresh} {
		c := &http.Cookie{Name: name, Value: value, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode}
		if value == "" {
			c.MaxAge = -1
		} else {
			c.MaxAge = int(s.refreshTTL / time.Second)
		}
		http.SetCookie(w, c)
	}
}

func (s *Server) checkPassword(email, password string) (*User, bool) {
	u, ok := s.UserByEmail(email)
	if !ok {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return nil, false
	}
	if err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)); err != nil {
		return nil, false
	}
	return u, u.Active
}

func (s *Server) roleByName(name string) *Role {
	for _, r := range s.roles {
		if r.Name == name {
			return r
		}
	}
	return nil
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}

func newID(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}
