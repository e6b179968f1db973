// Package gate decides which console pages and sidebar entries the current
// user can reach.
//
// Menu resolves the sidebar through a permission resolver, checking every
// entry in parallel and treating failed checks as denied. PageGuard gates a
// single page and reports loading, allowed, denied or timeout. Placeholder
// renders what a blocked page shows instead of its content.
package gate
