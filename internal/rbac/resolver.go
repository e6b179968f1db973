// ABOUTME: Permission resolver that answers can(resource, action) for the signed-in user
// ABOUTME: Resolves missing identity through /auth/me, then consults the decision cache before /rbac/enforce

package rbac

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/2389/hris-console/internal/apiclient"
	"github.com/2389/hris-console/internal/session"
)

// DefaultTTL is how long a decision is reused.
const DefaultTTL = 15 * time.Second

const (
	enforcePath = "/rbac/enforce"
	mePath      = "/auth/me"
)

type enforceRequest struct {
	EmployeeID string `json:"employee_id"`
	CompanyID  string `json:"company_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
}

// clocked is a cache whose expiry bookkeeping follows an external clock.
type clocked interface {
	SetClock(now func() time.Time)
}

// Resolver answers permission checks for the session held by its client.
// Concurrent misses on one key each call the backend; the last write wins.
type Resolver struct {
	client *apiclient.Client
	cache  DecisionCache
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache replaces the default MemoryCache.
func WithCache(cache DecisionCache) Option {
	return func(r *Resolver) { r.cache = cache }
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithNow sets the clock used for expiry.
func WithNow(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithLogger sets the logger. Nil keeps the default.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a resolver that talks to the backend through client.
func NewResolver(client *apiclient.Client, opts ...Option) *Resolver {
	r := &Resolver{
		ttl:    DefaultTTL,
		now:    time.Now,
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewMemoryCache(DefaultMaxEntries)
	}
	if c, ok := r.cache.(clocked); ok {
		c.SetClock(r.now)
	}
	r.logger = r.logger.With("component", "rbac")
	return r
}

// Can reports whether the current user may perform action on resource.
// A user whose employee and company cannot be established is denied
// without asking the backend. Transport and API failures are returned.
func (r *Resolver) Can(ctx context.Context, resource, action string) (bool, error) {
	sess := r.ensureIdentity(ctx)
	if sess == nil || !sess.User.HasRBACScope() {
		return false, nil
	}

	key := CacheKey(sess.User.EmployeeID, sess.User.CompanyID, resource, action)
	now := r.now()

	d, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("decision cache read failed", "key", key, "error", err)
	} else if ok && d.ExpiresAt.After(now) {
		return d.Allowed, nil
	}

	var resp any
	err = r.client.Post(ctx, enforcePath, enforceRequest{
		EmployeeID: sess.User.EmployeeID,
		CompanyID:  sess.User.CompanyID,
		Resource:   resource,
		Action:     action,
	}, &resp)
	if err != nil {
		return false, err
	}

	allowed := allowedFrom(resp)
	r.logger.Debug("permission resolved", "resource", resource, "action", action, "allowed", allowed)

	if err := r.cache.Set(ctx, key, Decision{Allowed: allowed, ExpiresAt: now.Add(r.ttl)}); err != nil {
		r.logger.Warn("decision cache write failed", "key", key, "error", err)
	}
	return allowed, nil
}

// ClearCache drops every cached decision.
func (r *Resolver) ClearCache(ctx context.Context) {
	if err := r.cache.Clear(ctx); err != nil {
		r.logger.Warn("clearing decision cache failed", "error", err)
	}
}

// Close releases the decision cache.
func (r *Resolver) Close() error {
	if c, ok := r.cache.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ensureIdentity returns the session, first filling in a missing employee
// or company through /auth/me. Lookup failures keep the current session.
func (r *Resolver) ensureIdentity(ctx context.Context) *session.Session {
	sessions := r.client.Sessions()
	current := sessions.Get(ctx)
	if current != nil && current.User.HasRBACScope() {
		return current
	}

	var me any
	if err := r.client.Get(ctx, mePath, &me); err != nil {
		r.logger.Debug("identity lookup failed", "error", err)
		return current
	}
	user := session.NormalizeSessionUser(me)
	if user == nil {
		return current
	}

	tokens := session.ExtractTokens(me)
	next := session.Session{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken, User: *user}
	if next.AccessToken == "" && current != nil {
		next.AccessToken = current.AccessToken
	}
	if next.RefreshToken == "" && current != nil {
		next.RefreshToken = current.RefreshToken
	}
	if err := sessions.Set(ctx, next); err != nil {
		r.logger.Warn("storing resolved identity failed", "error", err)
		return current
	}
	return sessions.Get(ctx)
}

// allowedFrom reads the allowed flag. Anything but a JSON true is a denial.
func allowedFrom(payload any) bool {
	body, ok := payload.(map[string]any)
	if !ok {
		return false
	}
	allowed, _ := body["allowed"].(bool)
	return allowed
}
