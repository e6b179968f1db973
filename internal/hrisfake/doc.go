// Package hrisfake is a small in-memory imitation of the HRIS backend.
//
// It speaks the same routes and envelopes the console expects, signs
// HS256 token pairs with internal/token, checks bcrypt password hashes and
// enforces role permissions from a fixed catalog. Tests mount it behind
// httptest.NewServer; cmd/fake-hris serves it for local development.
//
// Toggles such as SetFailRefresh, SetRejectAll and ExpireAccessTokens
// drive the refresh and expiry paths, and Calls reports per-route hit
// counts.
package hrisfake
