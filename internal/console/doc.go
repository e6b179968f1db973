// Package console serves the browser-facing shell of the HRIS console.
//
// The server has three parts:
//
//   - /api/ is a reverse proxy to the backend. Bare paths are mapped onto
//     /api/v1, upstream Set-Cookie headers are passed through, and transport
//     failures come back as a JSON 500.
//   - Page routes sit behind auth.RequireSession. Each request builds a
//     short-lived API client from the token cookies, restores the user with
//     an auth.Bootstrapper, checks the page's
//     permission with a gate.PageGuard, and resolves the sidebar with a
//     gate.Menu. Refreshed or cleared tokens are written back as cookies.
//   - /health and /health/ready report liveness and backend reachability.
//
// Permission decisions are shared across requests through an rbac
// DecisionCache, in memory or in Redis when rbac.redis_url is configured.
package console
