// ABOUTME: Request path normalization for the backend API
// ABOUTME: Maps bare resource paths to /api/v1 and rbac paths to the unversioned /api prefix

package apiclient

import "strings"

// Paths that never trigger the refresh-and-retry protocol.
var authBypassPaths = map[string]bool{
	"/auth/login":    true,
	"/auth/register": true,
	"/auth/refresh":  true,
}

const refreshPath = "/api/v1/auth/refresh"

// NormalizePath rewrites a caller path to the backend route.
//
//	https://x/y      -> unchanged
//	/api/...         -> unchanged
//	/rbac/enforce    -> /api/rbac/enforce
//	/employees       -> /api/v1/employees
//	employees        -> /api/v1/employees
func NormalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return path
	case strings.HasPrefix(path, "/api/"):
		return path
	case strings.HasPrefix(path, "/rbac/"):
		return "/api" + path
	case strings.HasPrefix(path, "/"):
		return "/api/v1" + path
	default:
		return "/api/v1/" + path
	}
}

func isAbsolute(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
