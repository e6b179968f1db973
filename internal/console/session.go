// ABOUTME: Per-request console session built from the browser's token cookies
// ABOUTME: Runs the API client, resolver and login flow for one request and echoes cookie changes back

package console

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/2389/hris-console/internal/apiclient"
	"github.com/2389/hris-console/internal/auth"
	"github.com/2389/hris-console/internal/rbac"
	"github.com/2389/hris-console/internal/session"
)

// cookieRecorder collects cookie writes so they can be sent with the
// response. The latest write per name wins.
type cookieRecorder struct {
	mu      sync.Mutex
	cookies []*http.Cookie
}

func (c *cookieRecorder) SetCookie(ck *http.Cookie) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.cookies {
		if existing.Name == ck.Name {
			c.cookies[i] = ck
			return
		}
	}
	c.cookies = append(c.cookies, ck)
}

// flush writes the recorded cookies. Call before the response header is written.
func (c *cookieRecorder) flush(w http.ResponseWriter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ck := range c.cookies {
		http.SetCookie(w, ck)
	}
}

// requestSession is the console's view of one browser request.
type requestSession struct {
	sessions *session.Store
	client   *apiclient.Client
	history  *apiclient.History
	resolver *rbac.Resolver
	state    *auth.State
	cookies  *cookieRecorder
}

// newRequestSession seeds a session from r's token cookies.
func (s *Server) newRequestSession(r *http.Request) *requestSession {
	ctx := r.Context()
	storage := session.NewMemoryStorage()

	var seed session.Session
	if c, err := r.Cookie(session.AccessTokenCookie); err == nil {
		seed.AccessToken = c.Value
	}
	if c, err := r.Cookie(session.RefreshTokenCookie); err == nil {
		seed.RefreshToken = c.Value
	}
	if seed.Authenticated() {
		// seeding goes through a store without a mirror so unchanged
		// cookies are not echoed back
		if err := session.NewStore(storage, nil, s.logger).Set(ctx, seed); err != nil {
			s.logger.Warn("seeding request session failed", "error", err)
		}
	}

	state := auth.NewState(nil, s.logger)
	state.SetHydrated()

	rec := &cookieRecorder{}
	sessions := session.NewStore(storage, rec, s.logger)
	history := apiclient.NewHistory(r.URL.RequestURI(), nil)
	client := apiclient.New(s.upstream, sessions,
		apiclient.WithHTTPClient(s.httpClient),
		apiclient.WithNavigator(history),
		apiclient.WithLogger(s.logger))

	return &requestSession{
		sessions: sessions,
		client:   client,
		history:  history,
		resolver: rbac.NewResolver(client,
			rbac.WithCache(s.decisions),
			rbac.WithTTL(s.cfg.RBAC.CacheTTL),
			rbac.WithLogger(s.logger)),
		state:   state,
		cookies: rec,
	}
}

// restore resolves the user behind the request's tokens through the
// bootstrap pass. Failures leave the session cleared or redirected.
func (rs *requestSession) restore(ctx context.Context, logger *slog.Logger) {
	b := auth.NewBootstrapper(rs.client, rs.state, auth.WithLogger(logger))
	if err := b.Run(ctx); err != nil {
		logger.Debug("request session not restored", "error", err)
	}
}

// identity returns the resolved user, if any.
func (rs *requestSession) identity(ctx context.Context) *session.Identity {
	sess := rs.sessions.Get(ctx)
	if sess == nil || sess.User.ID == "" {
		return nil
	}
	u := sess.User
	return &u
}

// redirect reports where the client sent the user, if anywhere.
func (rs *requestSession) redirect() (string, bool) {
	replaced := rs.history.Replaced()
	if len(replaced) == 0 {
		return "", false
	}
	return replaced[len(replaced)-1], true
}

// sharedDecisions adapts a per-request resolver to the menu. Decisions in
// the shared cache are keyed by employee and company, so an identity change
// within one request leaves nothing to drop.
type sharedDecisions struct {
	*rbac.Resolver
}

func (sharedDecisions) ClearCache(context.Context) {}
