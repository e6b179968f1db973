// Package session holds the console's credentials and the canonical identity
// of the signed-in user.
//
// # Overview
//
// A Session is the access/refresh token pair plus an Identity. Store
// persists it as JSON under StorageKey in a Storage backend (memory, file
// or SQLite) and mirrors token presence into two cookies, access_token and
// refresh_token, so route guards can decide public-vs-protected redirection
// without reading storage. Writes always carry both tokens: Merge takes a
// Partial whose Tokens replace the pair as a unit.
//
// A Store without Storage models a non-interactive context. Every
// operation is a no-op and Get returns nil.
//
// # Normalization
//
// Backend payloads differ between endpoints (flat vs nested user records,
// snake vs camel case, singular vs plural roles). ExtractTokens and
// NormalizeSessionUser reduce them to Tokens and Identity:
//
//	tokens := session.ExtractTokens(payload)      // access_token, accessToken, token, jwt ...
//	user := session.NormalizeSessionUser(payload) // nil unless id and email resolve
//
// Role resolution picks the most privileged role by the fixed order
// superadmin, admin, hr, manager, lead, supervisor, employee. Unknown roles
// rank last and ties keep their first-seen order.
package session
