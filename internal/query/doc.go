// Package query caches the results of backend reads by key and announces
// every fetch outcome to subscribers.
//
// Keys are slash-separated ("rbac/roles", "rbac/roles/7"), so Invalidate
// can drop a whole family at once. Listeners such as the session-expiry
// watcher subscribe to the event stream and inspect Event.Err.
package query
