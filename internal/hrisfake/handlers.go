// ABOUTME: Route handlers for the fake HRIS backend
// ABOUTME: Covers auth, policy enforcement, role administration, and a sample employee listing

package hrisfake

import (
	"encoding/json"
	"net/http"
	"slices"
	"sort"
	"time"

	"github.com/2389/hris-console/internal/token"
)

func (s *Server) routes() {
	s.mux = http.NewServeMux()

	s.handle("POST /api/v1/auth/login", s.handleLogin)
	s.handle("POST /api/v1/auth/refresh", s.handleRefresh)
	s.handle("POST /api/v1/auth/logout", s.handleLogout)
	s.handle("GET /api/v1/auth/me", s.authed(s.handleMe))

	s.handle("POST /api/rbac/enforce", s.authed(s.handleEnforce))
	s.handle("GET /api/rbac/permissions", s.authed(s.handlePermissions))
	s.handle("GET /api/rbac/roles", s.authed(s.handleListRoles))
	s.handle("POST /api/rbac/roles", s.authed(s.handleCreateRole))
	s.handle("GET /api/rbac/roles/{id}", s.authed(s.handleGetRole))
	s.handle("PUT /api/rbac/roles/{id}", s.authed(s.handleUpdateRole))
	s.handle("DELETE /api/rbac/roles/{id}", s.authed(s.handleDeleteRole))

	s.handle("GET /api/v1/users/with-roles", s.authed(s.handleUsersWithRoles))
	s.handle("PATCH /api/v1/users/{id}/role", s.authed(s.handleAssignRole))
	s.handle("GET /api/v1/employees", s.authed(s.handleListEmployees))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "Email and password are required",
			"errors":  requiredFields(req),
		})
		return
	}

	u, ok := s.checkPassword(req.Email, req.Password)
	if !ok {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}

	access, refresh, err := s.issuePair(u)
	if err != nil {
		s.logger.Error("issuing tokens", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Could not sign in")
		return
	}
	s.setAuthCookies(w, access, refresh)
	s.logger.Info("login", "user_id", u.ID)

	// login responds with tokens only; the profile comes from /auth/me
	writeData(w, http.StatusOK, map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "Bearer",
	})
}

func requiredFields(req loginRequest) map[string][]string {
	out := map[string][]string{}
	if req.Email == "" {
		out["email"] = []string{"Email is required"}
	}
	if req.Password == "" {
		out["password"] = []string{"Password is required"}
	}
	return out
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	raw := bearer(r)
	if raw == "" {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		raw = body.RefreshToken
	}
	if raw == "" {
		if c, err := r.Cookie(refreshCookie); err == nil {
			raw = c.Value
		}
	}

	s.mu.Lock()
	fail := s.failRefresh
	s.mu.Unlock()
	if fail || raw == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token expired")
		return
	}

	claims, err := s.issuer.Verify(raw, token.TypeRefresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid refresh token")
		return
	}

	s.mu.Lock()
	userID, ok := s.refresh[claims.ID]
	if ok {
		// refresh tokens rotate
		delete(s.refresh, claims.ID)
	}
	u := s.users[userID]
	s.mu.Unlock()
	if !ok || u == nil || !u.Active {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token revoked")
		return
	}

	access, refresh, err := s.issuePair(u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Could not refresh")
		return
	}
	s.setAuthCookies(w, access, refresh)
	writeData(w, http.StatusOK, map[string]any{"access_token": access, "refresh_token": refresh})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if raw := bearer(r); raw != "" {
		if claims, err := token.Inspect(raw); err == nil {
			s.mu.Lock()
			delete(s.access, claims.ID)
			s.mu.Unlock()
		}
	}
	if c, err := r.Cookie(refreshCookie); err == nil {
		if claims, err := token.Inspect(c.Value); err == nil {
			s.mu.Lock()
			delete(s.refresh, claims.ID)
			s.mu.Unlock()
		}
	}
	s.setAuthCookies(w, "", "")
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, u *User) {
	writeData(w, http.StatusOK, map[string]any{"user": s.profile(u)})
}

// profile renders u the way /auth/me does: the employee and its role are nested.
func (s *Server) profile(u *User) map[string]any {
	return map[string]any{
		"id":         u.ID,
		"email":      u.Email,
		"full_name":  u.FullName,
		"company_id": u.CompanyID,
		"is_active":  u.Active,
		"roles":      []string{u.Role},
		"employee": map[string]any{
			"id":              u.EmployeeID,
			"employee_number": u.EmployeeNumber,
			"role":            map[string]string{"name": u.Role},
		},
	}
}

type enforceRequest struct {
	EmployeeID string `json:"employee_id"`
	CompanyID  string `json:"company_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
}

func (s *Server) handleEnforce(w http.ResponseWriter, r *http.Request, u *User) {
	var req enforceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	allowed := s.allowed(u, req.Resource, req.Action)
	if req.EmployeeID != u.EmployeeID || req.CompanyID != u.CompanyID {
		allowed = false
	}
	writeJSON(w, http.StatusOK, map[string]any{"allowed": allowed})
}

func (s *Server) allowed(u *User, resource, action string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	role := s.roleByName(u.Role)
	return role != nil && role.allows(resource, action)
}

// require answers 403 unless u holds resource:action.
func (s *Server) require(w http.ResponseWriter, u *User, resource, action string) bool {
	if s.allowed(u, resource, action) {
		return true
	}
	writeJSON(w, http.StatusForbidden, map[string]any{
		"success": false,
		"error":   map[string]string{"code": "INSUFFICIENT_PERMISSIONS", "message": "You do not have access to this resource"},
	})
	return false
}

func (s *Server) handlePermissions(w http.ResponseWriter, _ *http.Request, u *User) {
	if !s.require(w, u, "role", "read") {
		return
	}
	s.mu.Lock()
	catalog := slices.Clone(s.catalog)
	s.mu.Unlock()
	writeData(w, http.StatusOK, catalog)
}

func (s *Server) handleListRoles(w http.ResponseWriter, _ *http.Request, u *User) {
	if !s.require(w, u, "role", "read") {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": s.sortedRoles()})
}

func (s *Server) sortedRoles() []Role {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Server) handleGetRole(w http.ResponseWriter, r *http.Request, u *User) {
	if !s.require(w, u, "role", "read") {
		return
	}
	s.mu.Lock()
	role, ok := s.roles[r.PathValue("id")]
	var out Role
	if ok {
		out = *role
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Role not found")
		return
	}
	writeData(w, http.StatusOK, out)
}

type rolePayload struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

func (s *Server) decodeRole(w http.ResponseWriter, r *http.Request) (rolePayload, bool) {
	var p rolePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return p, false
	}
	if p.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "Role name is required",
			"errors":  map[string][]string{"name": {"Name is required"}},
		})
		return p, false
	}
	if p.Permissions == nil {
		p.Permissions = []string{}
	}
	return p, true
}

func (s *Server) handleCreateRole(w http.ResponseWriter, r *http.Request, u *User) {
	if !s.require(w, u, "role", "create") {
		return
	}
	p, ok := s.decodeRole(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	if s.roleByName(p.Name) != nil {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "ROLE_EXISTS", "A role with that name already exists")
		return
	}
	role := &Role{ID: newID("role"), Name: p.Name, Description: p.Description, Permissions: p.Permissions}
	s.roles[role.ID] = role
	out := *role
	s.mu.Unlock()

	writeData(w, http.StatusCreated, out)
}

func (s *Server) handleUpdateRole(w http.ResponseWriter, r *http.Request, u *User) {
	if !s.require(w, u, "role", "update") {
		return
	}
	p, ok := s.decodeRole(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	role, exists := s.roles[r.PathValue("id")]
	if exists {
		role.Name, role.Description, role.Permissions = p.Name, p.Description, p.Permissions
	}
	s.mu.Unlock()
	if !exists {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Role not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleDeleteRole(w http.ResponseWriter, r *http.Request, u *User) {
	if !s.require(w, u, "role", "delete") {
		return
	}

	s.mu.Lock()
	_, exists := s.roles[r.PathValue("id")]
	delete(s.roles, r.PathValue("id"))
	s.mu.Unlock()
	if !exists {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Role not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type userWithRoles struct {
	ID             string   `json:"id"`
	EmployeeID     string   `json:"employee_id"`
	EmployeeNumber string   `json:"employee_number"`
	Email          string   `json:"email"`
	FullName       string   `json:"full_name"`
	IsActive       bool     `json:"is_active"`
	Roles          []string `json:"roles"`
	CreatedAt      string   `json:"created_at"`
}

func (s *Server) handleUsersWithRoles(w http.ResponseWriter, _ *http.Request, u *User) {
	if !s.require(w, u, "user", "read") {
		return
	}
	writeData(w, http.StatusOK, s.listUsers())
}

func (s *Server) listUsers() []userWithRoles {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]userWithRoles, 0, len(s.users))
	for _, usr := range s.users {
		out = append(out, userWithRoles{
			ID:             usr.ID,
			EmployeeID:     usr.EmployeeID,
			EmployeeNumber: usr.EmployeeNumber,
			Email:          usr.Email,
			FullName:       usr.FullName,
			IsActive:       usr.Active,
			Roles:          []string{usr.Role},
			CreatedAt:      usr.CreatedAt.Format(time.RFC3339),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeNumber < out[j].EmployeeNumber })
	return out
}

func (s *Server) handleAssignRole(w http.ResponseWriter, r *http.Request, u *User) {
	if !s.require(w, u, "user", "update") {
		return
	}
	var body struct {
		RoleName string `json:"role_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RoleName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "Role is required",
			"errors":  map[string][]string{"role_name": {"Role is required"}},
		})
		return
	}

	s.mu.Lock()
	target, ok := s.users[r.PathValue("id")]
	known := s.roleByName(body.RoleName) != nil
	if ok && known {
		target.Role = body.RoleName
	}
	s.mu.Unlock()

	switch {
	case !ok:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
	case !known:
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown role")
	default:
		s.logger.Info("role assigned", "user_id", target.ID, "role", body.RoleName)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func (s *Server) handleListEmployees(w http.ResponseWriter, _ *http.Request, u *User) {
	if !s.require(w, u, "employee", "read") {
		return
	}
	users := s.listUsers()
	employees := make([]map[string]any, 0, len(users))
	for _, usr := range users {
		employees = append(employees, map[string]any{
			"id":              usr.EmployeeID,
			"employee_number": usr.EmployeeNumber,
			"full_name":       usr.FullName,
			"email":           usr.Email,
		})
	}
	writeData(w, http.StatusOK, employees)
}
