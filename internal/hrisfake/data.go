// ABOUTME: Seed data for the fake HRIS backend
// ABOUTME: Defines users, roles, and the permission catalog the fake server enforces against

package hrisfake

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCompanyID is the company every seeded user belongs to.
const DefaultCompanyID = "comp-1"

// DemoPassword is the password of every seeded user.
const DemoPassword = "password123"

// User is an account known to the fake backend.
type User struct {
	ID             string
	Email          string
	FullName       string
	CompanyID      string
	EmployeeID     string
	EmployeeNumber string
	Role           string
	Active         bool
	CreatedAt      time.Time

	passwordHash []byte
}

// Permission is one catalog entry. Its ID is "resource:action".
type Permission struct {
	ID       string `json:"id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Label    string `json:"label"`
	Category string `json:"category"`
}

// Role is a named permission set.
type Role struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
}

func (r *Role) allows(resource, action string) bool {
	return slices.Contains(r.Permissions, resource+":"+action)
}

var catalogResources = []struct {
	resource string
	category string
	actions  []string
}{
	{"department", "Organization", []string{"read", "create", "update", "delete"}},
	{"position", "Organization", []string{"read", "create", "update", "delete"}},
	{"employee", "People", []string{"read", "create", "update", "delete"}},
	{"leave", "Time Off", []string{"read", "create", "approve"}},
	{"attendance", "Time Off", []string{"read", "create"}},
	{"salary", "Compensation", []string{"read", "update"}},
	{"payroll", "Compensation", []string{"read", "create", "approve"}},
	{"user", "Access", []string{"read", "update"}},
	{"role", "Access", []string{"read", "create", "update", "delete"}},
}

func defaultCatalog() []Permission {
	var out []Permission
	for _, r := range catalogResources {
		for _, a := range r.actions {
			out = append(out, Permission{
				ID:       r.resource + ":" + a,
				Resource: r.resource,
				Action:   a,
				Label:    titleCase(a) + " " + r.resource,
				Category: r.category,
			})
		}
	}
	return out
}

func defaultRoles(catalog []Permission) []*Role {
	all := make([]string, len(catalog))
	for i, p := range catalog {
		all[i] = p.ID
	}

	employee := []string{"leave:read", "leave:create", "attendance:read", "attendance:create"}
	manager := append(slices.Clone(employee), "leave:approve", "employee:read", "department:read", "position:read")
	hr := append(slices.Clone(manager),
		"employee:create", "employee:update", "salary:read", "payroll:read", "user:read", "position:create", "department:create")

	return []*Role{
		{ID: "role-superadmin", Name: "superadmin", Description: "Full access", Permissions: all},
		{ID: "role-admin", Name: "admin", Description: "Company administrator", Permissions: slices.Clone(all)},
		{ID: "role-hr", Name: "hr", Description: "Human resources", Permissions: hr},
		{ID: "role-manager", Name: "manager", Description: "Team manager", Permissions: manager},
		{ID: "role-employee", Name: "employee", Description: "Self service", Permissions: employee},
	}
}

// seedUsers are created by NewDemo.
var seedUsers = []struct {
	email, name, role string
}{
	{"admin@example.com", "Ada Admin", "admin"},
	{"hr@example.com", "Hana Hr", "hr"},
	{"manager@example.com", "Milo Manager", "manager"},
	{"employee@example.com", "Eve Employee", "employee"},
}

func hashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return hash, nil
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
