// ABOUTME: Tests for the role administration API
// ABOUTME: Covers payload shapes, role detail validation, query caching, and invalidation on writes

package rbac

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/hris-console/internal/apiclient"
	"github.com/2389/hris-console/internal/query"
)

type adminBackend struct {
	listCalls atomic.Int32

	mu       sync.Mutex
	list     any
	detail   any
	patched  map[string]string
	lastPath string
}

func newAdminHarness(t *testing.T) (*AdminAPI, *adminBackend, *harness) {
	t.Helper()
	ab := &adminBackend{}
	h := newHarness(t)

	mux := http.NewServeMux()
	list := func(w http.ResponseWriter, r *http.Request) {
		ab.listCalls.Add(1)
		ab.mu.Lock()
		body := ab.list
		ab.mu.Unlock()
		writeJSON(w, http.StatusOK, body)
	}
	mux.HandleFunc("GET /api/rbac/permissions", list)
	mux.HandleFunc("GET /api/rbac/roles", list)
	mux.HandleFunc("GET /api/v1/users/with-roles", list)
	mux.HandleFunc("GET /api/rbac/roles/{id}", func(w http.ResponseWriter, r *http.Request) {
		ab.mu.Lock()
		body := ab.detail
		ab.mu.Unlock()
		writeJSON(w, http.StatusOK, body)
	})
	mux.HandleFunc("POST /api/rbac/roles", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"id": "r-9"})
	})
	mux.HandleFunc("PUT /api/rbac/roles/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	mux.HandleFunc("DELETE /api/rbac/roles/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("PATCH /api/v1/users/{id}/role", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		ab.mu.Lock()
		ab.patched = body
		ab.lastPath = r.URL.Path
		ab.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	mux.Handle("/", h.backend.handler(t))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := apiclient.New(server.URL, h.sessions)
	h.client = client
	h.resolver = NewResolver(client, WithNow(h.clock.Now))
	t.Cleanup(func() { h.resolver.Close() })

	queries := query.New(nil)
	t.Cleanup(queries.Close)

	return NewAdminAPI(client, h.resolver, queries, nil), ab, h
}

func (b *adminBackend) setList(v any) {
	b.mu.Lock()
	b.list = v
	b.mu.Unlock()
}

func (b *adminBackend) setDetail(v any) {
	b.mu.Lock()
	b.detail = v
	b.mu.Unlock()
}

func TestAdmin_ListShapes(t *testing.T) {
	perm := map[string]any{"id": "p-1", "resource": "leave", "action": "approve", "label": "Approve leave", "category": "Leave"}
	tests := []struct {
		name string
		body any
		want int
	}{
		{"bare array", []any{perm}, 1},
		{"items", map[string]any{"items": []any{perm, perm}}, 2},
		{"data", map[string]any{"data": []any{perm}}, 1},
		{"unknown shape", map[string]any{"rows": []any{perm}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admin, ab, _ := newAdminHarness(t)
			ab.setList(tt.body)

			perms, err := admin.Permissions(context.Background())
			require.NoError(t, err)
			require.NotNil(t, perms)
			assert.Len(t, perms, tt.want)
			if tt.want > 0 {
				assert.Equal(t, Permission{ID: "p-1", Resource: "leave", Action: "approve", Label: "Approve leave", Category: "Leave"}, perms[0])
			}
		})
	}
}

func TestAdmin_ReadsAreCached(t *testing.T) {
	admin, ab, _ := newAdminHarness(t)
	ab.setList([]any{map[string]any{"id": "r-1", "name": "hr", "permissions": []any{"p-1"}}})
	ctx := context.Background()

	roles, err := admin.Roles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, Role{ID: "r-1", Name: "hr", Permissions: []string{"p-1"}}, roles[0])

	_, err = admin.Roles(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), ab.listCalls.Load())

	require.NoError(t, admin.CreateRole(ctx, RolePayload{Name: "auditor", Permissions: []string{"p-1"}}))
	_, err = admin.Roles(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), ab.listCalls.Load())
}

func TestAdmin_RoleDetail(t *testing.T) {
	tests := []struct {
		name    string
		body    any
		wantID  string
		wantErr bool
	}{
		{"object with id", map[string]any{"id": "r-1", "name": "hr", "permissions": []any{}}, "r-1", false},
		{"data wrapper", map[string]any{"data": map[string]any{"id": "r-2", "name": "lead", "permissions": []any{}}}, "r-2", false},
		{"no id", map[string]any{"name": "ghost"}, "", true},
		{"array", []any{}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admin, ab, _ := newAdminHarness(t)
			ab.setDetail(tt.body)

			role, err := admin.Role(context.Background(), "r-1")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRoleDetail)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, role.ID)
		})
	}
}

func TestAdmin_AssignRoleInvalidatesAndClearsDecisions(t *testing.T) {
	admin, ab, h := newAdminHarness(t)
	h.signIn(t, ana)
	ab.setList([]any{})
	ctx := context.Background()

	_, err := admin.UsersWithRoles(ctx)
	require.NoError(t, err)
	_, err = h.resolver.Can(ctx, "user", "read")
	require.NoError(t, err)

	require.NoError(t, admin.AssignRole(ctx, "u 7", "manager"))

	ab.mu.Lock()
	assert.Equal(t, map[string]string{"role_name": "manager"}, ab.patched)
	assert.Equal(t, "/api/v1/users/u 7/role", ab.lastPath)
	ab.mu.Unlock()

	_, err = admin.UsersWithRoles(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), ab.listCalls.Load())

	_, err = h.resolver.Can(ctx, "user", "read")
	require.NoError(t, err)
	assert.Equal(t, int32(2), h.backend.enforceCalls.Load())
}

func TestAdmin_UpdateAndDeleteRole(t *testing.T) {
	admin, ab, _ := newAdminHarness(t)
	ab.setList([]any{})
	ctx := context.Background()

	_, err := admin.Roles(ctx)
	require.NoError(t, err)
	require.NoError(t, admin.UpdateRole(ctx, "r-1", RolePayload{Name: "hr"}))
	_, err = admin.Roles(ctx)
	require.NoError(t, err)
	require.NoError(t, admin.DeleteRole(ctx, "r-1"))
	_, err = admin.Roles(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(3), ab.listCalls.Load())
}

func TestAdmin_WithoutQueryCache(t *testing.T) {
	_, ab, h := newAdminHarness(t)
	admin := NewAdminAPI(h.client, nil, nil, nil)
	ab.setList(map[string]any{"data": []any{map[string]any{"id": "u-1", "email": "a@b.c", "roles": []any{"hr"}, "is_active": true}}})
	ctx := context.Background()

	users, err := admin.UsersWithRoles(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, []string{"hr"}, users[0].Roles)
	assert.True(t, users[0].IsActive)

	_, err = admin.UsersWithRoles(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), ab.listCalls.Load())
	require.NoError(t, admin.AssignRole(ctx, "u-1", "hr"))
}
