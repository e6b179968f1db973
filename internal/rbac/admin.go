// ABOUTME: Role and permission administration endpoints
// ABOUTME: Reads go through the query cache; writes invalidate queries and cached decisions

package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/2389/hris-console/internal/apiclient"
	"github.com/2389/hris-console/internal/query"
)

// ErrInvalidRoleDetail is returned when a role lookup yields no role object.
var ErrInvalidRoleDetail = errors.New("invalid role detail response")

// Query keys used by AdminAPI.
const (
	QueryPermissions    = "rbac/permissions"
	QueryRoles          = "rbac/roles"
	QueryUsersWithRoles = "rbac/users-with-roles"
)

// Permission is one entry of the permission catalog.
type Permission struct {
	ID       string `json:"id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Label    string `json:"label"`
	Category string `json:"category"`
}

// Role is a named set of permission ids.
type Role struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
}

// RolePayload creates or updates a role.
type RolePayload struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
}

// UserWithRoles is a user account with its assigned role names.
type UserWithRoles struct {
	ID             string   `json:"id"`
	EmployeeID     string   `json:"employee_id"`
	EmployeeNumber string   `json:"employee_number"`
	Email          string   `json:"email"`
	FullName       string   `json:"full_name"`
	IsActive       bool     `json:"is_active"`
	Roles          []string `json:"roles"`
	CreatedAt      string   `json:"created_at"`
}

// AdminAPI manages roles and role assignments.
type AdminAPI struct {
	client   *apiclient.Client
	resolver *Resolver
	queries  *query.Cache
	logger   *slog.Logger
}

// NewAdminAPI creates the admin API. resolver and queries may be nil.
func NewAdminAPI(client *apiclient.Client, resolver *Resolver, queries *query.Cache, logger *slog.Logger) *AdminAPI {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminAPI{
		client:   client,
		resolver: resolver,
		queries:  queries,
		logger:   logger.With("component", "rbac_admin"),
	}
}

// Permissions lists the permission catalog.
func (a *AdminAPI) Permissions(ctx context.Context) ([]Permission, error) {
	return fetchList[Permission](ctx, a, QueryPermissions, "/rbac/permissions")
}

// Roles lists all roles.
func (a *AdminAPI) Roles(ctx context.Context) ([]Role, error) {
	return fetchList[Role](ctx, a, QueryRoles, "/rbac/roles")
}

// UsersWithRoles lists user accounts with their roles.
func (a *AdminAPI) UsersWithRoles(ctx context.Context) ([]UserWithRoles, error) {
	return fetchList[UserWithRoles](ctx, a, QueryUsersWithRoles, "/users/with-roles")
}

// Role fetches one role by id.
func (a *AdminAPI) Role(ctx context.Context, id string) (*Role, error) {
	return fetch(ctx, a, roleDetailKey(id), func(ctx context.Context) (*Role, error) {
		var payload any
		if err := a.client.Get(ctx, "/rbac/roles/"+url.PathEscape(id), &payload); err != nil {
			return nil, err
		}
		obj := normalizeObject(payload)
		if obj == nil {
			return nil, ErrInvalidRoleDetail
		}
		var role Role
		if err := remarshal(obj, &role); err != nil {
			return nil, fmt.Errorf("decoding role: %w", err)
		}
		return &role, nil
	})
}

// CreateRole creates a role.
func (a *AdminAPI) CreateRole(ctx context.Context, payload RolePayload) error {
	if err := a.client.Post(ctx, "/rbac/roles", payload, nil); err != nil {
		return err
	}
	a.invalidate(ctx, QueryRoles)
	return nil
}

// UpdateRole replaces a role's name, description and permissions.
func (a *AdminAPI) UpdateRole(ctx context.Context, id string, payload RolePayload) error {
	if err := a.client.Put(ctx, "/rbac/roles/"+url.PathEscape(id), payload, nil); err != nil {
		return err
	}
	a.invalidate(ctx, QueryRoles)
	a.clearDecisions(ctx)
	return nil
}

// DeleteRole deletes a role.
func (a *AdminAPI) DeleteRole(ctx context.Context, id string) error {
	if err := a.client.Delete(ctx, "/rbac/roles/"+url.PathEscape(id), nil); err != nil {
		return err
	}
	a.invalidate(ctx, QueryRoles)
	a.clearDecisions(ctx)
	return nil
}

// AssignRole gives userID the named role.
func (a *AdminAPI) AssignRole(ctx context.Context, userID, roleName string) error {
	body := map[string]string{"role_name": roleName}
	if err := a.client.Patch(ctx, "/users/"+url.PathEscape(userID)+"/role", body, nil); err != nil {
		return err
	}
	a.logger.Info("role assigned", "user_id", userID, "role", roleName)
	a.invalidate(ctx, QueryUsersWithRoles)
	a.clearDecisions(ctx)
	return nil
}

func roleDetailKey(id string) string {
	return QueryRoles + "/detail/" + id
}

func (a *AdminAPI) invalidate(_ context.Context, key string) {
	if a.queries != nil {
		a.queries.Invalidate(key)
	}
}

func (a *AdminAPI) clearDecisions(ctx context.Context) {
	if a.resolver != nil {
		a.resolver.ClearCache(ctx)
	}
}

func fetch[T any](ctx context.Context, a *AdminAPI, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	if a.queries == nil {
		return fn(ctx)
	}
	return query.FetchAs(ctx, a.queries, key, fn)
}

func fetchList[T any](ctx context.Context, a *AdminAPI, key, path string) ([]T, error) {
	return fetch(ctx, a, key, func(ctx context.Context) ([]T, error) {
		var payload any
		if err := a.client.Get(ctx, path, &payload); err != nil {
			return nil, err
		}
		items := []T{}
		if err := remarshal(normalizeArray(payload), &items); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", key, err)
		}
		return items, nil
	})
}

// normalizeArray accepts a bare array, {items: [...]} or {data: [...]}.
func normalizeArray(payload any) []any {
	switch body := payload.(type) {
	case []any:
		return body
	case map[string]any:
		if items, ok := body["items"].([]any); ok {
			return items
		}
		if data, ok := body["data"].([]any); ok {
			return data
		}
	}
	return []any{}
}

// normalizeObject accepts an object with an id, or {data: {...}}.
func normalizeObject(payload any) map[string]any {
	body, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	if _, ok := body["id"]; ok {
		return body
	}
	if data, ok := body["data"].(map[string]any); ok {
		return data
	}
	return nil
}

func remarshal(in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
