// Package auth owns the signed-in state of the console.
//
// # State
//
// State holds the current user plus the lifecycle flags (hydrated,
// validating, logging out, session expired). The user and the expired flag
// are persisted under the "auth-storage" key and restored by Hydrate.
//
// # Startup
//
// Bootstrapper reconciles a stored access token with the backend once per
// process:
//
//	state := auth.NewState(storage, logger)
//	_ = state.Hydrate(ctx)
//	err := auth.NewBootstrapper(client, state).Run(ctx)
//
// A rejected token marks the session expired; any other failure logs out.
//
// # Expiry
//
// ExpiryWatcher subscribes to the query cache. The first query failure that
// invalidates the session runs the logout sequence exactly once: mark
// expired, tell the backend, clear the session, log out, go to /login.
//
// # Sign-in
//
// LoginFlow performs the credential exchange and explicit logout.
//
// # HTTP
//
// RequireSession guards console pages. Requests without an access_token or
// refresh_token cookie are redirected to /login?next=<path>.
package auth
