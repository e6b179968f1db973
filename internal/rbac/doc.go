// Package rbac answers "may the signed-in user do X to Y?" against the
// backend's policy engine and administers roles.
//
// # Resolver
//
// Resolver.Can first makes sure the session knows the user's employee and
// company. If either is missing it asks /auth/me once; a user that still
// cannot be placed is denied without an enforce call. Decisions are cached
// per (employee, company, resource, action) for DefaultTTL:
//
//	resolver := rbac.NewResolver(client, rbac.WithTTL(cfg.RBAC.CacheTTL))
//	ok, err := resolver.Can(ctx, "payroll", "approve")
//
// The cache is a MemoryCache unless WithCache supplies another
// DecisionCache, such as a RedisCache shared by several console processes.
//
// # Administration
//
// AdminAPI wraps the permission catalog, role CRUD and role assignment.
// Reads are served from a query.Cache; role changes and assignments
// invalidate the affected queries and clear cached decisions.
package rbac
