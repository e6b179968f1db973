// ABOUTME: Template rendering for the console shell pages
// ABOUTME: Loads templates from the embedded filesystem and renders landing, login and guarded pages

package console

import (
	"html/template"
	"net/http"

	"github.com/2389/hris-console/internal/gate"
	"github.com/2389/hris-console/internal/session"
)

type homeData struct {
	Title string
}

type loginData struct {
	Title       string
	Error       string
	Email       string
	Next        string
	FieldErrors map[string][]string
}

type menuLink struct {
	Title  string
	URL    string
	Active bool
}

type pageData struct {
	Title       string
	User        *session.Identity
	General     []menuLink
	Settings    []menuLink
	Status      gate.Status
	Placeholder template.HTML
}

// Allowed reports whether the page body may render.
func (p pageData) Allowed() bool {
	return p.Status == gate.StatusAllowed
}

func menuLinks(items []gate.NavItem, section gate.Section, pathname string) []menuLink {
	var out []menuLink
	for _, item := range items {
		if item.Section != section {
			continue
		}
		out = append(out, menuLink{Title: item.Title, URL: item.URL, Active: gate.IsActive(pathname, item.URL)})
	}
	return out
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+name)
	if err != nil {
		s.logger.Error("failed to parse template", "template", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Error("failed to render template", "template", name, "error", err)
	}
}
