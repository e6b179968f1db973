// ABOUTME: Permission-filtered sidebar resolution
// ABOUTME: Checks every entry in parallel and re-resolves when the acting identity changes

package gate

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/2389/hris-console/internal/session"
)

// Checker answers permission questions. *rbac.Resolver satisfies it.
type Checker interface {
	Can(ctx context.Context, resource, action string) (bool, error)
}

// Resolver is a Checker whose cached decisions can be dropped.
type Resolver interface {
	Checker
	ClearCache(ctx context.Context)
}

type identityKey struct {
	userID     string
	employeeID string
	companyID  string
}

func keyOf(u session.Identity) identityKey {
	return identityKey{userID: u.ID, employeeID: u.EmployeeID, companyID: u.CompanyID}
}

// Menu resolves which navigation entries the current identity may see.
type Menu struct {
	resolver Resolver
	sessions *session.Store
	items    []NavItem
	logger   *slog.Logger

	mu       sync.Mutex
	resolved bool
	key      identityKey
	visible  []NavItem
}

// NewMenu creates a menu over items. Nil items selects Navigation.
func NewMenu(resolver Resolver, sessions *session.Store, items []NavItem, logger *slog.Logger) *Menu {
	if items == nil {
		items = Navigation
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Menu{
		resolver: resolver,
		sessions: sessions,
		items:    items,
		logger:   logger.With("component", "menu"),
	}
}

// Visible returns the entries of section the current identity may see. An
// empty section returns every section. Without a signed-in user only public
// entries are returned. Results are reused until the identity changes; a
// change drops the resolver's cached decisions first.
func (m *Menu) Visible(ctx context.Context, section Section) []NavItem {
	sess := m.sessions.Get(ctx)
	if sess == nil || sess.User.ID == "" {
		return filterSection(PublicItems(m.items), section)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := keyOf(sess.User)
	if !m.resolved || key != m.key {
		m.resolver.ClearCache(ctx)
		m.visible = m.resolve(ctx)
		m.key = key
		m.resolved = true
	}
	return filterSection(m.visible, section)
}

// Invalidate forces the next Visible call to resolve again.
func (m *Menu) Invalidate() {
	m.mu.Lock()
	m.resolved = false
	m.visible = nil
	m.mu.Unlock()
}

func (m *Menu) resolve(ctx context.Context) []NavItem {
	allowed := make([]bool, len(m.items))

	var g errgroup.Group
	for i, item := range m.items {
		if item.Public() {
			allowed[i] = true
			continue
		}
		g.Go(func() error {
			ok, err := m.resolver.Can(ctx, item.Resource, item.Action)
			if err != nil {
				m.logger.Debug("menu check failed", "resource", item.Resource, "action", item.Action, "error", err)
				return nil
			}
			allowed[i] = ok
			return nil
		})
	}
	_ = g.Wait()

	visible := make([]NavItem, 0, len(m.items))
	for i, item := range m.items {
		if allowed[i] {
			visible = append(visible, item)
		}
	}
	m.logger.Debug("menu resolved", "visible", len(visible), "total", len(m.items))
	return visible
}
