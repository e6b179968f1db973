// Package token issues, verifies and inspects HS256 JWT bearer tokens.
//
// The console treats access and refresh tokens as opaque credentials; the
// only client-side use is Inspect/ExpiresAt, which read the exp claim to
// report how long a session has left. Issuer is used by the development
// backend (internal/hrisfake) to mint and check real tokens.
package token
