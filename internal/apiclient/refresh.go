// ABOUTME: Silent token refresh used by the 401 retry protocol
// ABOUTME: Posts the refresh token (or relies on cookies) and merges returned tokens into the session

package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/2389/hris-console/internal/session"
)

// refresh asks the backend for a new token pair. It reports whether the
// caller may retry the original request.
func (c *Client) refresh(ctx context.Context) bool {
	current := c.sessions.Get(ctx)

	var body io.Reader
	if current != nil && current.RefreshToken != "" {
		data, _ := json.Marshal(map[string]string{
			"refresh_token": current.RefreshToken,
			"refreshToken":  current.RefreshToken,
		})
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(refreshPath), body)
	if err != nil {
		return false
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if current != nil && current.RefreshToken != "" {
		req.Header.Set("Authorization", "Bearer "+current.RefreshToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("refresh request failed", "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("refresh rejected", "status", resp.StatusCode)
		return false
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false
	}
	payload, err := unwrapPayload(resp.StatusCode, parseBody(raw))
	if err != nil {
		return false
	}
	tokens := session.ExtractTokens(payload)

	if current == nil {
		return tokens.AccessToken != ""
	}

	next := session.Tokens{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}
	if next.RefreshToken == "" {
		next.RefreshToken = current.RefreshToken
	}
	// with no tokens in the body the stale access token is dropped and
	// cookies carry authentication
	if _, err := c.sessions.Merge(ctx, session.Partial{Tokens: &next}); err != nil {
		c.logger.Warn("storing refreshed tokens failed", "error", err)
	}

	c.logger.Debug("session refreshed", "has_access", next.AccessToken != "")
	if c.onRefresh != nil {
		c.onRefresh(ctx)
	}
	return true
}
