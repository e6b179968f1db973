// ABOUTME: HTTP client for the backend REST API with bearer auth and silent refresh
// ABOUTME: Unwraps response envelopes, classifies errors, and retries once after a 401 refresh

package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/hris-console/internal/session"
)

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Body   any
	Header http.Header

	// SkipAuthRetry disables the refresh-and-retry protocol for this call.
	SkipAuthRetry bool

	// KeepSession leaves the session and location untouched when the call
	// is rejected with 401.
	KeepSession bool
}

// Client talks to the backend on behalf of the stored session.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   *session.Store
	navigator  Navigator
	onRefresh  func(ctx context.Context)
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Its cookie jar should be
// the jar the session store mirrors cookies into.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithNavigator sets where login redirects go.
func WithNavigator(n Navigator) Option {
	return func(c *Client) { c.navigator = n }
}

// WithRefreshHook registers fn to run after every successful silent refresh.
func WithRefreshHook(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onRefresh = fn }
}

// WithLogger sets the logger. Nil keeps the default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the API at baseURL.
func New(baseURL string, sessions *session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		sessions:   sessions,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "apiclient")
	return c
}

// Sessions returns the session store the client reads credentials from.
func (c *Client) Sessions() *session.Store {
	return c.sessions
}

// Get issues a GET and decodes the unwrapped payload into out (if non-nil).
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path}, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body}, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, out)
}

// Do runs req and decodes the unwrapped payload into out. A *any out
// receives the decoded JSON value as is.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	payload, err := c.request(ctx, req)
	if err != nil {
		return err
	}
	return decodeInto(payload, out)
}

func (c *Client) request(ctx context.Context, req Request) (any, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && !req.SkipAuthRetry && !req.KeepSession && !authBypassPaths[req.Path] {
		io.Copy(io.Discard, resp.Body)

		if c.refresh(ctx) {
			c.logger.Debug("retrying after refresh", "method", req.Method, "path", req.Path)
			req.SkipAuthRetry = true
			return c.request(ctx, req)
		}

		c.logger.Info("session refresh failed, signing out", "path", req.Path)
		c.expireSession(ctx)
		return nil, newUnauthorized("Session expired", nil)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	payload := parseBody(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized && !req.KeepSession {
			c.expireSession(ctx)
		}
		fallback := http.StatusText(resp.StatusCode)
		if fallback == "" {
			fallback = "Request failed"
		}
		return nil, mapError(resp.StatusCode, payload, fallback)
	}

	return unwrapPayload(resp.StatusCode, payload)
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.resolve(NormalizePath(req.Path)), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("X-Request-ID") == "" {
		httpReq.Header.Set("X-Request-ID", uuid.New().String())
	}

	if httpReq.Header.Get("Authorization") == "" {
		if tok := c.sessions.Get(ctx).OAuth2Token(); tok != nil {
			tok.SetAuthHeader(httpReq)
		}
	}

	return httpReq, nil
}

func (c *Client) resolve(path string) string {
	if isAbsolute(path) {
		return path
	}
	return c.baseURL + path
}

// expireSession clears the session and sends the user to the login screen.
func (c *Client) expireSession(ctx context.Context) {
	if err := c.sessions.Clear(ctx); err != nil {
		c.logger.Warn("clearing session failed", "error", err)
	}
	c.redirectToLogin()
}

func (c *Client) redirectToLogin() {
	if c.navigator == nil {
		return
	}
	location := c.navigator.Location()
	if pathOf(location) == "/login" {
		return
	}
	c.navigator.Replace(LoginRedirect(location))
}

// parseBody decodes JSON, falling back to the raw text. Empty bodies are nil.
func parseBody(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	return v
}

// unwrapPayload applies the ok/success envelope convention.
func unwrapPayload(status int, payload any) (any, error) {
	body, ok := payload.(map[string]any)
	if !ok {
		return payload, nil
	}

	for _, flag := range []string{"ok", "success"} {
		v, present := body[flag]
		if !present {
			continue
		}
		succeeded, isBool := v.(bool)
		if !isBool {
			continue
		}
		if !succeeded {
			errPayload := body["error"]
			if errPayload == nil {
				errPayload = body
			}
			return nil, mapError(status, errPayload, "Request failed")
		}
		if data, hasData := body["data"]; hasData {
			return data, nil
		}
		return body, nil
	}

	if msg, isString := body["error"].(string); isString {
		if _, hasData := body["data"]; !hasData {
			return nil, mapError(status, body, msg)
		}
	}

	return payload, nil
}

func decodeInto(payload, out any) error {
	if out == nil {
		return nil
	}
	if p, ok := out.(*any); ok {
		*p = payload
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("re-encoding payload: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	return nil
}
