// ABOUTME: Navigator abstraction standing in for the browser location
// ABOUTME: History records the current location and every replacement for CLIs and tests

package apiclient

import (
	"net/url"
	"sync"
)

// Navigator exposes the current location (path plus query) and replaces it.
type Navigator interface {
	Location() string
	Replace(target string)
}

// History is an in-memory Navigator.
type History struct {
	mu       sync.Mutex
	location string
	replaced []string
	onChange func(target string)
}

// NewHistory starts at location. onChange, if set, is called after every Replace.
func NewHistory(location string, onChange func(target string)) *History {
	return &History{location: location, onChange: onChange}
}

func (h *History) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.location
}

// Navigate moves to location without recording a replacement.
func (h *History) Navigate(location string) {
	h.mu.Lock()
	h.location = location
	h.mu.Unlock()
}

func (h *History) Replace(target string) {
	h.mu.Lock()
	h.location = target
	h.replaced = append(h.replaced, target)
	onChange := h.onChange
	h.mu.Unlock()

	if onChange != nil {
		onChange(target)
	}
}

// Replaced returns every target passed to Replace, oldest first.
func (h *History) Replaced() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.replaced...)
}

// LoginRedirect returns the login URL that brings the user back to location.
func LoginRedirect(location string) string {
	return "/login?next=" + url.QueryEscape(location)
}

func pathOf(location string) string {
	u, err := url.Parse(location)
	if err != nil {
		return location
	}
	return u.Path
}
