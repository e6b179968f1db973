// ABOUTME: Sidebar navigation entries and their required permissions
// ABOUTME: Entries without a resource or action are visible to every signed-in user

package gate

import "strings"

// Section groups navigation entries in the sidebar.
type Section string

const (
	SectionGeneral  Section = "general"
	SectionSettings Section = "settings"
)

// NavItem is one sidebar entry.
type NavItem struct {
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Resource string  `json:"resource,omitempty"`
	Action   string  `json:"action,omitempty"`
	Section  Section `json:"section"`
}

// Public reports whether the entry needs no permission check.
func (n NavItem) Public() bool {
	return n.Resource == "" || n.Action == ""
}

// Navigation is the console sidebar.
var Navigation = []NavItem{
	{Title: "Dashboard", URL: "/dashboard", Section: SectionGeneral},
	{Title: "Departments", URL: "/departments", Resource: "department", Action: "read", Section: SectionGeneral},
	{Title: "Positions", URL: "/positions", Resource: "position", Action: "read", Section: SectionGeneral},
	{Title: "Employees", URL: "/employees", Resource: "employee", Action: "read", Section: SectionGeneral},
	{Title: "Leaves", URL: "/leaves", Resource: "leave", Action: "read", Section: SectionGeneral},
	{Title: "Attendance", URL: "/attendances", Resource: "attendance", Action: "read", Section: SectionGeneral},
	{Title: "Employee Salaries", URL: "/employee-salaries", Resource: "salary", Action: "read", Section: SectionGeneral},
	{Title: "Payrolls", URL: "/payrolls", Resource: "payroll", Action: "read", Section: SectionGeneral},
	{Title: "Users", URL: "/users", Resource: "user", Action: "read", Section: SectionGeneral},
	{Title: "Role Management", URL: "/settings/user-role-permission", Resource: "role", Action: "read", Section: SectionSettings},
	{Title: "Assign Role to User", URL: "/settings/user-role-assignment", Resource: "user", Action: "read", Section: SectionSettings},
}

// IsActive reports whether the sidebar entry at url is highlighted for pathname.
func IsActive(pathname, url string) bool {
	return pathname == url || (url != "/" && strings.HasPrefix(pathname, url))
}

// ItemFor returns the entry that owns pathname, preferring the longest URL.
// An entry owns its URL and the paths below it, split on "/".
func ItemFor(items []NavItem, pathname string) (NavItem, bool) {
	var (
		best  NavItem
		found bool
	)
	for _, item := range items {
		if !owns(item.URL, pathname) {
			continue
		}
		if !found || len(item.URL) > len(best.URL) {
			best, found = item, true
		}
	}
	return best, found
}

func owns(url, pathname string) bool {
	if pathname == url {
		return true
	}
	return strings.HasPrefix(pathname, strings.TrimSuffix(url, "/")+"/")
}

// PublicItems returns the entries that need no permission check.
func PublicItems(items []NavItem) []NavItem {
	var out []NavItem
	for _, item := range items {
		if item.Public() {
			out = append(out, item)
		}
	}
	return out
}

func filterSection(items []NavItem, section Section) []NavItem {
	out := make([]NavItem, 0, len(items))
	for _, item := range items {
		if section == "" || item.Section == section {
			out = append(out, item)
		}
	}
	return out
}
