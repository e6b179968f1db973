// ABOUTME: Decision caches for permission checks
// ABOUTME: MemoryCache is size-bounded with insertion-order eviction and periodic expiry sweeps

package rbac

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultMaxEntries bounds a MemoryCache created without an explicit size.
const DefaultMaxEntries = 1024

// Decision is a cached permission outcome. It is usable while ExpiresAt is
// strictly after the resolver's clock.
type Decision struct {
	Allowed   bool      `json:"allowed"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DecisionCache stores decisions by CacheKey.
type DecisionCache interface {
	Get(ctx context.Context, key string) (Decision, bool, error)
	Set(ctx context.Context, key string, d Decision) error
	Clear(ctx context.Context) error
}

// CacheKey builds the cache key for one (employee, company, resource, action) tuple.
func CacheKey(employeeID, companyID, resource, action string) string {
	return fmt.Sprintf("rbac:%s:%s:%s:%s", employeeID, companyID, resource, action)
}

type memoryEntry struct {
	decision Decision
	element  *list.Element
}

// MemoryCache is an in-process DecisionCache. Writes to an existing key
// replace it, so the last writer wins.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	order   *list.List // keys, oldest write at front
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// NewMemoryCache creates a cache holding at most maxSize decisions. A
// background goroutine drops expired entries every minute until Close.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = DefaultMaxEntries
	}
	c := &MemoryCache{
		entries: make(map[string]*memoryEntry),
		order:   list.New(),
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go c.cleanup()
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) (Decision, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return Decision{}, false, nil
	}
	return e.decision, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, d Decision) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.decision = d
		c.order.MoveToBack(e.element)
		return nil
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = &memoryEntry{decision: d, element: c.order.PushBack(key)}
	return nil
}

func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*memoryEntry)
	c.order.Init()
	return nil
}

// Len returns the number of stored decisions, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictOldest must be called with mu held.
func (c *MemoryCache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.entries, key)
}

func (c *MemoryCache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

// sweep removes every entry that is no longer usable.
func (c *MemoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if !e.decision.ExpiresAt.After(now) {
			c.order.Remove(e.element)
			delete(c.entries, key)
		}
	}
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
	return nil
}
