// ABOUTME: Console shell HTTP server with the /api proxy, route guard, and gated pages
// ABOUTME: Resolves the sidebar and page permissions per request against the backend

package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/2389/hris-console/internal/apiclient"
	"github.com/2389/hris-console/internal/auth"
	"github.com/2389/hris-console/internal/config"
	"github.com/2389/hris-console/internal/gate"
	"github.com/2389/hris-console/internal/rbac"
)

// Server serves the console shell.
type Server struct {
	cfg        *config.Config
	upstream   string
	proxy      *Proxy
	decisions  rbac.DecisionCache
	httpClient *http.Client
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a server from cfg. With rbac.redis_url set, permission
// decisions are shared through Redis; otherwise they live in memory.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "console")

	upstream := cfg.Console.Upstream
	if upstream == "" {
		upstream = cfg.API.BaseURL
	}
	proxy, err := NewProxy(upstream, logger)
	if err != nil {
		return nil, err
	}

	var decisions rbac.DecisionCache
	if cfg.RBAC.RedisURL != "" {
		rc, err := rbac.DialRedis(ctx, cfg.RBAC.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connecting decision cache: %w", err)
		}
		logger.Info("sharing permission decisions through redis")
		decisions = rc
	} else {
		decisions = rbac.NewMemoryCache(cfg.RBAC.MaxEntries)
	}

	s := &Server{
		cfg:        cfg,
		upstream:   strings.TrimRight(upstream, "/"),
		proxy:      proxy,
		decisions:  decisions,
		httpClient: &http.Client{Timeout: cfg.API.Timeout},
		logger:     logger,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Console.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the root handler. /api and /health bypass the session guard.
func (s *Server) Handler() http.Handler {
	pages := http.NewServeMux()
	pages.HandleFunc("GET /{$}", s.handleHome)
	pages.HandleFunc("GET /login", s.handleLoginPage)
	pages.HandleFunc("POST /login", s.handleLogin)
	pages.HandleFunc("POST /logout", s.handleLogout)
	pages.HandleFunc("GET /", s.handlePage)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.proxy)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/ready", s.handleReady)
	mux.Handle("/", auth.RequireSession()(pages))
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String(), "upstream", s.upstream)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown uses a fresh context since the serving context is already done.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops the HTTP server and releases the decision cache.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if c, ok := s.decisions.(interface{ Close() error }); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 when the backend answers at all.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.upstream+"/api/v1/auth/me", nil)
	if err == nil {
		var resp *http.Response
		resp, err = s.httpClient.Do(req)
		if err == nil {
			resp.Body.Close()
		}
	}
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, "upstream unavailable: %v", err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "home.html", homeData{Title: "Welcome"})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "login.html", loginData{Title: "Sign in", Next: safeNext(r.URL.Query().Get("next"))})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	next := safeNext(r.PostFormValue("next"))

	rs := s.newRequestSession(r)
	flow := auth.NewLoginFlow(rs.client, rs.state, nil, rs.history, auth.WithLogger(s.logger))
	if _, err := flow.Login(r.Context(), email, r.PostFormValue("password"), next); err != nil {
		form := apiclient.ResolveFormError(err, "Login failed")
		status := http.StatusUnauthorized
		if errors.Is(err, apiclient.ErrValidation) {
			status = http.StatusBadRequest
		}
		rs.cookies.flush(w)
		s.render(w, status, "login.html", loginData{
			Title:       "Sign in",
			Error:       form.Message,
			Email:       email,
			Next:        next,
			FieldErrors: form.FieldErrors,
		})
		return
	}

	rs.cookies.flush(w)
	http.Redirect(w, r, rs.history.Location(), http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	rs := s.newRequestSession(r)
	flow := auth.NewLoginFlow(rs.client, rs.state, nil, rs.history, auth.WithLogger(s.logger))
	if err := flow.Logout(r.Context()); err != nil {
		s.logger.Warn("logout failed", "error", err)
	}
	rs.cookies.flush(w)
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

// handlePage renders a sidebar page behind its permission.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	item, ok := gate.ItemFor(gate.Navigation, r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	ctx := r.Context()
	logger := s.logger.With("path", r.URL.Path)
	if id := auth.IdentityFromContext(ctx); id != nil {
		logger = logger.With("user_id", id.ID)
	}

	rs := s.newRequestSession(r)
	rs.restore(ctx, logger)

	status := gate.StatusAllowed
	if !item.Public() {
		guard := gate.NewPageGuard(rs.resolver, s.cfg.Gate.GuardTimeout, logger)
		status = guard.Check(ctx, item.Resource, item.Action)
	}
	logger.Debug("page gated", "page", item.Title, "status", status)
	visible := gate.NewMenu(sharedDecisions{rs.resolver}, rs.sessions, nil, logger).Visible(ctx, "")

	if target, redirected := rs.redirect(); redirected {
		rs.cookies.flush(w)
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}

	placeholder, err := gate.Placeholder(status)
	if err != nil {
		logger.Error("failed to render placeholder", "status", status, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	httpStatus := http.StatusOK
	if status == gate.StatusDenied {
		httpStatus = http.StatusForbidden
	}

	rs.cookies.flush(w)
	s.render(w, httpStatus, "page.html", pageData{
		Title:       item.Title,
		User:        rs.identity(ctx),
		General:     menuLinks(visible, gate.SectionGeneral, r.URL.Path),
		Settings:    menuLinks(visible, gate.SectionSettings, r.URL.Path),
		Status:      status,
		Placeholder: placeholder,
	})
}

// safeNext keeps only local absolute paths as post-login targets.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}
