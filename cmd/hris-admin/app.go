// ABOUTME: Wiring for the admin CLI: session storage, API client, auth state and resolver
// ABOUTME: Every command runs against one app built from the console config

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"os"
	"sync"

	"github.com/fatih/color"

	"github.com/2389/hris-console/internal/apiclient"
	"github.com/2389/hris-console/internal/auth"
	"github.com/2389/hris-console/internal/config"
	"github.com/2389/hris-console/internal/logging"
	"github.com/2389/hris-console/internal/query"
	"github.com/2389/hris-console/internal/rbac"
	"github.com/2389/hris-console/internal/session"
	"github.com/2389/hris-console/internal/store"
)

// cliLocation is where the CLI pretends to be when the client redirects.
const cliLocation = "/dashboard"

type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *store.SQLiteStore
	sessions *session.Store
	client   *apiclient.Client
	history  *apiclient.History
	state    *auth.State
	queries  *query.Cache
	resolver *rbac.Resolver
	authOpts []auth.Option

	// watchDone closes once the expiry watcher has handled every query event.
	watchDone <-chan struct{}
	stopWatch context.CancelFunc
	drained   sync.Once

	closed bool
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newAppFromConfig(ctx, cfg)
}

// newAppFromConfig wires the app and starts the expiry watcher over the
// query cache.
func newAppFromConfig(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := logging.New(cfg.Logging, os.Stderr)
	a := &app{cfg: cfg, logger: logger, authOpts: []auth.Option{auth.WithLogger(logger)}}

	var storage session.Storage
	switch cfg.Session.Backend {
	case config.BackendMemory:
		storage = session.NewMemoryStorage()
	case config.BackendFile:
		fs, err := session.NewFileStorage(cfg.Session.Path)
		if err != nil {
			return nil, fmt.Errorf("opening session directory: %w", err)
		}
		storage = fs
	case config.BackendSQLite:
		db, err := store.NewSQLiteStore(cfg.Session.Path)
		if err != nil {
			return nil, fmt.Errorf("opening session database: %w", err)
		}
		a.db = db
		storage = db
		a.authOpts = append(a.authOpts, auth.WithRecorder(db))
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	mirror, err := session.NewJarMirror(jar, cfg.API.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing api.base_url: %w", err)
	}

	a.sessions = session.NewStore(storage, mirror, logger)
	a.history = apiclient.NewHistory(cliLocation, func(target string) {
		color.Yellow("  → redirected to %s\n", target)
	})
	a.queries = query.New(logger)
	a.client = apiclient.New(cfg.API.BaseURL, a.sessions,
		apiclient.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout, Jar: jar}),
		apiclient.WithNavigator(a.history),
		apiclient.WithLogger(logger),
		apiclient.WithRefreshHook(a.recordRefresh))

	var decisions rbac.DecisionCache
	if cfg.RBAC.RedisURL != "" {
		rc, err := rbac.DialRedis(ctx, cfg.RBAC.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting decision cache: %w", err)
		}
		decisions = rc
	} else {
		decisions = rbac.NewMemoryCache(cfg.RBAC.MaxEntries)
	}
	a.resolver = rbac.NewResolver(a.client,
		rbac.WithCache(decisions),
		rbac.WithTTL(cfg.RBAC.CacheTTL),
		rbac.WithLogger(logger))

	a.state = auth.NewState(storage, logger)
	if err := a.state.Hydrate(ctx); err != nil {
		logger.Warn("auth state not restored", "error", err)
	}

	watchCtx, stop := context.WithCancel(ctx)
	watcher := auth.NewExpiryWatcher(a.client, a.state, a.queries, a.history, a.authOpts...)
	a.watchDone = watcher.Start(watchCtx)
	a.stopWatch = stop
	return a, nil
}

// drain closes the query cache and waits for the expiry watcher to finish
// any logout a failed query started.
func (a *app) drain() {
	a.drained.Do(func() {
		if a.queries != nil {
			a.queries.Close()
		}
		if a.watchDone != nil {
			<-a.watchDone
		}
		if a.stopWatch != nil {
			a.stopWatch()
		}
	})
}

// restore runs the bootstrap pass so a stored token without a known user
// is validated before the command runs.
func (a *app) restore(ctx context.Context) error {
	b := auth.NewBootstrapper(a.client, a.state, a.authOpts...)
	if err := b.Run(ctx); err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}
	return nil
}

// requireSession restores the session and fails when nobody is signed in.
func (a *app) requireSession(ctx context.Context) (*session.Session, error) {
	if err := a.restore(ctx); err != nil {
		return nil, err
	}
	sess := a.sessions.Get(ctx)
	if !sess.Authenticated() {
		if a.state.IsSessionExpired() {
			return nil, fmt.Errorf("session expired, run: hris-admin login <email>")
		}
		return nil, fmt.Errorf("not signed in, run: hris-admin login <email>")
	}
	return sess, nil
}

// recordRefresh logs silent refreshes to the session history when one is kept.
func (a *app) recordRefresh(ctx context.Context) {
	a.logger.Debug("access token refreshed")
	if a.db == nil {
		return
	}
	var userID string
	if u := a.state.User(); u != nil {
		userID = u.ID
	}
	if err := a.db.AppendSessionEvent(ctx, &store.SessionEvent{Kind: store.EventRefresh, UserID: userID}); err != nil {
		a.logger.Warn("recording refresh failed", "error", err)
	}
}

func (a *app) loginFlow() *auth.LoginFlow {
	return auth.NewLoginFlow(a.client, a.state, a.resolver, a.history, a.authOpts...)
}

func (a *app) adminAPI() *rbac.AdminAPI {
	return rbac.NewAdminAPI(a.client, a.resolver, a.queries, a.logger)
}

func (a *app) Close() {
	if a.closed {
		return
	}
	a.closed = true
	a.drain()
	if a.resolver != nil {
		if err := a.resolver.Close(); err != nil {
			a.logger.Debug("closing decision cache", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Debug("closing session database", "error", err)
		}
	}
}
