// ABOUTME: Markdown placeholders shown while a page guard is unsettled or denied
// ABOUTME: Rendered to HTML with goldmark for the console shell

package gate

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
)

var placeholders = map[Status]string{
	StatusLoading: "_Checking access..._\n",
	StatusDenied:  "## Access denied\n\nYou do not have permission to access this section.\n",
	StatusTimeout: "## Access check timed out\n\nThe permission check did not finish in time. Reload the page to try again.\n",
}

// PlaceholderMarkdown returns the markdown source for status. Allowed pages
// have no placeholder.
func PlaceholderMarkdown(status Status) string {
	return placeholders[status]
}

// Placeholder renders the placeholder for status to HTML.
func Placeholder(status Status) (template.HTML, error) {
	src := PlaceholderMarkdown(status)
	if src == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering %s placeholder: %w", status, err)
	}
	return template.HTML(buf.String()), nil
}
