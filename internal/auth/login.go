// ABOUTME: Interactive sign-in and sign-out sequences for the console
// ABOUTME: Exchanges credentials for tokens, loads the profile, and navigates on success

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/hris-console/internal/apiclient"
	"github.com/2389/hris-console/internal/rbac"
	"github.com/2389/hris-console/internal/session"
	"github.com/2389/hris-console/internal/store"
)

// DefaultLandingPath is where a successful login goes without a next target.
const DefaultLandingPath = "/dashboard"

// ErrProfileUnavailable is returned when /auth/me yields no usable user.
var ErrProfileUnavailable = errors.New("failed to load user profile")

// pendingUserID marks a session whose profile has not been loaded yet.
const pendingUserID = "pending"

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginFlow signs users in and out.
type LoginFlow struct {
	client    *apiclient.Client
	state     *State
	resolver  *rbac.Resolver
	navigator apiclient.Navigator
	opts      options
}

// NewLoginFlow creates a login flow. resolver and navigator may be nil.
func NewLoginFlow(client *apiclient.Client, state *State, resolver *rbac.Resolver, navigator apiclient.Navigator, opts ...Option) *LoginFlow {
	return &LoginFlow{
		client:    client,
		state:     state,
		resolver:  resolver,
		navigator: navigator,
		opts:      buildOptions("login", opts),
	}
}

// Login exchanges credentials for a session, loads the profile and
// navigates to next, or DefaultLandingPath when next is empty.
func (f *LoginFlow) Login(ctx context.Context, email, password, next string) (*session.Identity, error) {
	sessions := f.client.Sessions()

	var loginPayload any
	if err := f.client.Post(ctx, "/auth/login", credentials{Email: email, Password: password}, &loginPayload); err != nil {
		return nil, err
	}

	loginTokens := session.ExtractTokens(loginPayload)
	if loginTokens.AccessToken != "" || loginTokens.RefreshToken != "" {
		pending := session.Session{
			AccessToken:  loginTokens.AccessToken,
			RefreshToken: loginTokens.RefreshToken,
			User:         session.Identity{ID: pendingUserID, Email: email, Name: email},
		}
		if err := sessions.Set(ctx, pending); err != nil {
			return nil, fmt.Errorf("storing session: %w", err)
		}
	}

	var me any
	if err := f.client.Get(ctx, "/auth/me", &me); err != nil {
		return nil, err
	}
	user := session.NormalizeSessionUser(me)
	if user == nil {
		return nil, ErrProfileUnavailable
	}

	loginSession := &session.Session{AccessToken: loginTokens.AccessToken, RefreshToken: loginTokens.RefreshToken}
	if err := sessions.Set(ctx, mergedSession(me, *user, sessions.Get(ctx), loginSession)); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}

	f.state.Login(ctx, *user)
	f.opts.logger.Info("signed in", "user_id", user.ID, "role", user.Role)
	f.opts.record(ctx, store.EventLogin, user.ID, map[string]any{"email": user.Email})

	if next == "" {
		next = DefaultLandingPath
	}
	if f.navigator != nil {
		f.navigator.Replace(next)
	}
	return user, nil
}

// Logout ends the session locally and tells the backend on a best-effort basis.
func (f *LoginFlow) Logout(ctx context.Context) error {
	var userID string
	if u := f.state.User(); u != nil {
		userID = u.ID
	}

	err := f.client.Do(ctx, apiclient.Request{
		Method:        "POST",
		Path:          "/auth/logout",
		Body:          struct{}{},
		SkipAuthRetry: true,
		KeepSession:   true,
	}, nil)
	if err != nil {
		f.opts.logger.Debug("backend logout failed", "error", err)
	}

	clearErr := f.client.Sessions().Clear(ctx)
	f.state.Logout(ctx)
	if f.resolver != nil {
		f.resolver.ClearCache(ctx)
	}
	if f.navigator != nil {
		f.navigator.Replace(LoginPath)
	}
	f.opts.record(ctx, store.EventLogout, userID, nil)

	if clearErr != nil {
		return fmt.Errorf("clearing session: %w", clearErr)
	}
	return nil
}
