// ABOUTME: Reverse proxy forwarding console /api requests to the HRIS backend
// ABOUTME: Rewrites bare and v1 paths onto the backend routes and reports upstream failures as JSON

package console

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
)

// ErrInvalidUpstream is returned for an upstream that is not an absolute http(s) URL.
var ErrInvalidUpstream = errors.New("upstream must be an absolute http(s) URL")

// UpstreamPath maps the part of a request path below /api to the backend
// route:
//
//	/v1/auth/me    -> /api/v1/auth/me
//	/api/x         -> /api/x
//	/rbac/enforce  -> /rbac/enforce
//	/employees     -> /api/v1/employees
func UpstreamPath(rest string) string {
	var segments []string
	for _, s := range strings.Split(rest, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	switch {
	case len(segments) == 0:
		return ""
	case segments[0] == "v1":
		segments = append([]string{"api"}, segments...)
	case segments[0] != "api" && segments[0] != "rbac":
		segments = append([]string{"api", "v1"}, segments...)
	}
	return "/" + strings.Join(segments, "/")
}

// Proxy forwards /api/... requests to the backend. Upstream Set-Cookie
// headers reach the browser unchanged.
type Proxy struct {
	target *url.URL
	rp     *httputil.ReverseProxy
	logger *slog.Logger
}

// NewProxy creates a proxy to upstream.
func NewProxy(upstream string, logger *slog.Logger) (*Proxy, error) {
	target, err := url.Parse(strings.TrimRight(upstream, "/"))
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUpstream, upstream)
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Proxy{target: target, logger: logger.With("component", "proxy")}
	p.rp = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			u := p.TargetURL(pr.In.URL)
			pr.Out.URL = u
			pr.Out.Host = ""
			pr.Out.Header.Del("Content-Length")
		},
		ErrorHandler: p.handleError,
	}
	return p, nil
}

// TargetURL returns the backend URL for an inbound /api request URL.
func (p *Proxy) TargetURL(in *url.URL) *url.URL {
	rest := strings.TrimPrefix(in.Path, "/api")
	return &url.URL{
		Scheme:   p.target.Scheme,
		Host:     p.target.Host,
		Path:     p.target.Path + UpstreamPath(rest),
		RawQuery: in.RawQuery,
	}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.logger.Debug("proxying", "method", r.Method, "path", r.URL.Path)
	p.rp.ServeHTTP(w, r)
}

func (p *Proxy) handleError(w http.ResponseWriter, r *http.Request, err error) {
	target := r.URL.String()
	if r.URL.Host == "" {
		target = p.TargetURL(r.URL).String()
	}
	p.logger.Error("upstream request failed", "target", target, "error", err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{
		"error":     "Failed to fetch from backend",
		"details":   err.Error(),
		"targetUrl": target,
	})
}
