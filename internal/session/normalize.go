// ABOUTME: Token and identity extraction from heterogeneous backend payloads
// ABOUTME: Walks decoded JSON for token aliases and builds a canonical Identity

package session

import (
	"encoding/json"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

var (
	accessTokenKeys  = []string{"access_token", "accessToken", "token", "jwt"}
	refreshTokenKeys = []string{"refresh_token", "refreshToken"}
)

// rolePriority orders roles from most to least privileged.
var rolePriority = []string{"superadmin", "admin", "hr", "manager", "lead", "supervisor", "employee"}

// RoleRank returns the position of role in the privilege order. Unranked
// roles share the lowest rank.
func RoleRank(role string) int {
	if i := slices.Index(rolePriority, strings.ToLower(role)); i >= 0 {
		return i
	}
	return len(rolePriority)
}

type nodeKey struct {
	kind reflect.Kind
	ptr  uintptr
	n    int
}

// ExtractTokens walks a decoded JSON payload and returns the first access and
// refresh token found under the known aliases. Keys at each level are visited
// in sorted order. Self-referencing maps and slices are visited once.
func ExtractTokens(payload any) Tokens {
	var (
		out     Tokens
		visited = make(map[nodeKey]struct{})
	)

	done := func() bool { return out.AccessToken != "" && out.RefreshToken != "" }

	var walk func(v any)
	walk = func(v any) {
		switch node := v.(type) {
		case map[string]any:
			if node == nil {
				return
			}
			key := nodeKey{kind: reflect.Map, ptr: reflect.ValueOf(node).Pointer()}
			if _, seen := visited[key]; seen {
				return
			}
			visited[key] = struct{}{}

			if out.AccessToken == "" {
				out.AccessToken = firstString(node, accessTokenKeys)
			}
			if out.RefreshToken == "" {
				out.RefreshToken = firstString(node, refreshTokenKeys)
			}

			keys := make([]string, 0, len(node))
			for k := range node {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				if done() {
					return
				}
				walk(node[k])
			}

		case []any:
			if len(node) == 0 {
				return
			}
			key := nodeKey{kind: reflect.Slice, ptr: reflect.ValueOf(node).Pointer(), n: len(node)}
			if _, seen := visited[key]; seen {
				return
			}
			visited[key] = struct{}{}

			for _, item := range node {
				if done() {
					return
				}
				walk(item)
			}
		}
	}

	walk(payload)
	return out
}

func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// NormalizeSessionUser builds an Identity from a /auth/me or login payload.
// It returns nil unless both id and email resolve to non-empty values.
func NormalizeSessionUser(payload any) *Identity {
	root, ok := payload.(map[string]any)
	if !ok || root == nil {
		return nil
	}

	source := root
	if user, ok := root["user"].(map[string]any); ok && user != nil {
		source = user
	}

	company, _ := source["company"].(map[string]any)
	employee, _ := source["employee"].(map[string]any)

	id := firstID(source["id"], source["user_id"], source["userId"])
	email := firstString(source, []string{"email", "username"})
	if id == "" || email == "" {
		return nil
	}

	name := firstString(source, []string{"name", "full_name", "fullName"})
	if name == "" {
		name = email
	}

	return &Identity{
		ID:    id,
		Email: email,
		Name:  name,
		CompanyID: firstID(
			source["company_id"], source["companyId"], source["companyID"], source["company"],
			lookup(company, "id"), lookup(company, "company_id"),
		),
		EmployeeID: firstID(
			source["employee_id"], source["employeeId"], source["employeeID"], source["employee"],
			lookup(employee, "id"), lookup(employee, "employee_id"),
		),
		Role: resolveRole(source, employee),
	}
}

func lookup(m map[string]any, key string) any {
	if m == nil {
		return nil
	}
	return m[key]
}

func firstID(values ...any) string {
	for _, v := range values {
		if id := toStringID(v); id != "" {
			return id
		}
	}
	return ""
}

// toStringID accepts non-blank strings and finite numbers.
func toStringID(v any) string {
	switch n := v.(type) {
	case string:
		if strings.TrimSpace(n) != "" {
			return n
		}
	case float64:
		if !math.IsNaN(n) && !math.IsInf(n, 0) {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
	case json.Number:
		return n.String()
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	}
	return ""
}

// resolveRole collects role-like values from the user record and its nested
// employee record and returns the most privileged one, lower-cased.
func resolveRole(source, employee map[string]any) string {
	var candidates []string
	collect := func(m map[string]any) {
		if m == nil {
			return
		}
		candidates = appendRoles(candidates, m["role"])
		candidates = appendRoles(candidates, m["role_name"])
		candidates = appendRoles(candidates, m["roles"])
	}
	collect(source)
	collect(employee)

	best, bestRank := "", math.MaxInt
	for _, c := range candidates {
		if r := RoleRank(c); r < bestRank {
			best, bestRank = c, r
		}
	}
	return best
}

func appendRoles(dst []string, v any) []string {
	switch r := v.(type) {
	case string:
		if role := strings.ToLower(strings.TrimSpace(r)); role != "" {
			dst = append(dst, role)
		}
	case []any:
		for _, item := range r {
			dst = appendRoles(dst, item)
		}
	case map[string]any:
		dst = appendRoles(dst, r["name"])
		dst = appendRoles(dst, r["role_name"])
	}
	return dst
}
