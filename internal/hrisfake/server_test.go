// ABOUTME: Tests for the fake HRIS backend
// ABOUTME: Exercises login, refresh rotation, enforcement, and the failure toggles over real HTTP

package hrisfake

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	fake, err := NewDemo([]byte("test-secret"))
	require.NoError(t, err)
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv
}

func call(t *testing.T, srv *httptest.Server, method, path, bearer string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func login(t *testing.T, srv *httptest.Server, email string) (string, string) {
	t.Helper()
	status, body := call(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": DemoPassword})
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	return data["access_token"].(string), data["refresh_token"].(string)
}

func TestLogin(t *testing.T) {
	_, srv := newTestServer(t)

	access, refresh := login(t, srv, "hr@example.com")
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)

	status, body := call(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "hr@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, false, body["success"])

	status, body = call(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "nobody@example.com", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = call(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["errors"], "email")
}

func TestLogin_SetsCookies(t *testing.T) {
	_, srv := newTestServer(t)

	raw, _ := json.Marshal(map[string]string{"email": "hr@example.com", "password": DemoPassword})
	resp, err := http.Post(srv.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()

	names := map[string]bool{}
	for _, c := range resp.Cookies() {
		names[c.Name] = c.Value != ""
	}
	assert.Equal(t, map[string]bool{"access_token": true, "refresh_token": true}, names)
}

func TestMe(t *testing.T) {
	_, srv := newTestServer(t)
	access, _ := login(t, srv, "manager@example.com")

	status, body := call(t, srv, http.MethodGet, "/api/v1/auth/me", access, nil)
	require.Equal(t, http.StatusOK, status)
	user := body["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "manager@example.com", user["email"])
	assert.Equal(t, DefaultCompanyID, user["company_id"])

	status, _ = call(t, srv, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRefresh_RotatesTokens(t *testing.T) {
	fake, srv := newTestServer(t)
	access, refresh := login(t, srv, "employee@example.com")

	fake.ExpireAccessTokens()
	status, _ := call(t, srv, http.MethodGet, "/api/v1/auth/me", access, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := call(t, srv, http.MethodPost, "/api/v1/auth/refresh", refresh, nil)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	newAccess := data["access_token"].(string)

	status, _ = call(t, srv, http.MethodGet, "/api/v1/auth/me", newAccess, nil)
	assert.Equal(t, http.StatusOK, status)

	// the old refresh token was consumed
	status, _ = call(t, srv, http.MethodPost, "/api/v1/auth/refresh", refresh, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// an access token is not a refresh token
	status, _ = call(t, srv, http.MethodPost, "/api/v1/auth/refresh", newAccess, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	assert.Equal(t, 3, fake.Calls("POST /api/v1/auth/refresh"))
}

func TestRefresh_BodyToken(t *testing.T) {
	_, srv := newTestServer(t)
	_, refresh := login(t, srv, "employee@example.com")

	status, _ := call(t, srv, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusOK, status)
}

func TestToggles(t *testing.T) {
	fake, srv := newTestServer(t)
	access, refresh := login(t, srv, "admin@example.com")

	fake.SetFailRefresh(true)
	status, _ := call(t, srv, http.MethodPost, "/api/v1/auth/refresh", refresh, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	fake.SetFailRefresh(false)

	fake.SetRejectAll(true)
	status, _ = call(t, srv, http.MethodGet, "/api/v1/auth/me", access, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	fake.SetRejectAll(false)

	status, _ = call(t, srv, http.MethodGet, "/api/v1/auth/me", access, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestEnforce(t *testing.T) {
	fake, srv := newTestServer(t)
	access, _ := login(t, srv, "employee@example.com")
	u, ok := fake.UserByEmail("employee@example.com")
	require.True(t, ok)

	check := func(resource, action, employeeID string) bool {
		status, body := call(t, srv, http.MethodPost, "/api/rbac/enforce", access, map[string]string{
			"employee_id": employeeID, "company_id": u.CompanyID, "resource": resource, "action": action,
		})
		require.Equal(t, http.StatusOK, status)
		return body["allowed"].(bool)
	}

	assert.True(t, check("leave", "read", u.EmployeeID))
	assert.False(t, check("payroll", "read", u.EmployeeID))
	assert.False(t, check("leave", "read", "emp-other"))
}

func TestRoleAdministration(t *testing.T) {
	_, srv := newTestServer(t)
	admin, _ := login(t, srv, "admin@example.com")
	employee, _ := login(t, srv, "employee@example.com")

	status, body := call(t, srv, http.MethodGet, "/api/rbac/roles", employee, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "INSUFFICIENT_PERMISSIONS", body["error"].(map[string]any)["code"])

	status, body = call(t, srv, http.MethodPost, "/api/rbac/roles", admin, map[string]any{"name": "auditor", "permissions": []string{"payroll:read"}})
	require.Equal(t, http.StatusCreated, status)
	id := body["data"].(map[string]any)["id"].(string)

	status, _ = call(t, srv, http.MethodPost, "/api/rbac/roles", admin, map[string]any{"name": "auditor"})
	assert.Equal(t, http.StatusConflict, status)

	status, body = call(t, srv, http.MethodGet, "/api/rbac/roles/"+id, admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "auditor", body["data"].(map[string]any)["name"])

	status, _ = call(t, srv, http.MethodPut, "/api/rbac/roles/"+id, admin, map[string]any{"name": "auditor", "permissions": []string{}})
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, srv, http.MethodDelete, "/api/rbac/roles/"+id, admin, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = call(t, srv, http.MethodGet, "/api/rbac/roles/"+id, admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAssignRole(t *testing.T) {
	fake, srv := newTestServer(t)
	admin, _ := login(t, srv, "admin@example.com")
	u, _ := fake.UserByEmail("employee@example.com")

	status, _ := call(t, srv, http.MethodPatch, "/api/v1/users/"+u.ID+"/role", admin, map[string]string{"role_name": "hr"})
	require.Equal(t, http.StatusOK, status)

	employee, _ := login(t, srv, "employee@example.com")
	status, _ = call(t, srv, http.MethodGet, "/api/v1/users/with-roles", employee, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, srv, http.MethodPatch, "/api/v1/users/"+u.ID+"/role", admin, map[string]string{"role_name": "wizard"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAddUser_Duplicate(t *testing.T) {
	fake, _ := newTestServer(t)
	_, err := fake.AddUser("HR@example.com", "x", "Dup", "hr")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}
