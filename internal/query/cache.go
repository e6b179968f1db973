// ABOUTME: Keyed query cache with stale time and prefix invalidation
// ABOUTME: Publishes an updated event to subscribers after every fetch, success or failure

package query

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultStaleTime is how long a successful result is served without refetching.
	DefaultStaleTime = 60 * time.Second

	subscriberBufferSize = 64
)

// EventType names what happened to a query.
type EventType string

const (
	EventUpdated     EventType = "updated"
	EventInvalidated EventType = "invalidated"
)

// Event reports a query state change. Err is the fetch error for a failed
// update and nil otherwise.
type Event struct {
	Type EventType
	Key  string
	Err  error
	At   time.Time
}

// Fetcher loads the value for one query key.
type Fetcher func(ctx context.Context) (any, error)

type entry struct {
	data      any
	updatedAt time.Time
}

// Cache holds query results by key. Failed fetches are never cached.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	staleTime time.Duration
	now       func() time.Time

	subMu       sync.RWMutex
	subscribers map[string]chan Event

	logger *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithStaleTime overrides DefaultStaleTime.
func WithStaleTime(d time.Duration) Option {
	return func(c *Cache) { c.staleTime = d }
}

// WithNow sets the clock.
func WithNow(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache. Pass nil logger for default.
func New(logger *slog.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		entries:     make(map[string]*entry),
		staleTime:   DefaultStaleTime,
		now:         time.Now,
		subscribers: make(map[string]chan Event),
		logger:      logger.With("component", "query"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the fresh cached value for key, or runs fn and caches its
// result. Every run of fn publishes an EventUpdated carrying its error.
func (c *Cache) Fetch(ctx context.Context, key string, fn Fetcher) (any, error) {
	if data, ok := c.fresh(key); ok {
		return data, nil
	}

	data, err := fn(ctx)

	if err == nil {
		c.mu.Lock()
		c.entries[key] = &entry{data: data, updatedAt: c.now()}
		c.mu.Unlock()
	}

	c.publish(Event{Type: EventUpdated, Key: key, Err: err, At: c.now()})
	return data, err
}

// FetchAs is Fetch with a typed result.
func FetchAs[T any](ctx context.Context, c *Cache, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, _ := v.(T)
	return typed, nil
}

func (c *Cache) fresh(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.updatedAt) >= c.staleTime {
		return nil, false
	}
	return e.data, true
}

// Get returns the cached value for key regardless of staleness.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.data, true
}

// Invalidate drops key and every key nested under it ("rbac" drops
// "rbac/roles" but not "rbacx"). Returns the number of entries removed.
func (c *Cache) Invalidate(prefix string) int {
	c.mu.Lock()
	var removed []string
	for key := range c.entries {
		if key == prefix || strings.HasPrefix(key, prefix+"/") {
			delete(c.entries, key)
			removed = append(removed, key)
		}
	}
	c.mu.Unlock()

	for _, key := range removed {
		c.publish(Event{Type: EventInvalidated, Key: key, At: c.now()})
	}
	return len(removed)
}

// Subscribe registers for all query events. The subscription is removed
// when ctx is cancelled.
func (c *Cache) Subscribe(ctx context.Context) (<-chan Event, string) {
	subID := uuid.New().String()
	ch := make(chan Event, subscriberBufferSize)

	c.subMu.Lock()
	c.subscribers[subID] = ch
	c.subMu.Unlock()

	c.logger.Debug("subscriber added", "sub_id", subID)

	go func() {
		<-ctx.Done()
		c.Unsubscribe(subID)
	}()

	return ch, subID
}

// publish never blocks. Events are dropped for subscribers whose channels are full.
func (c *Cache) publish(ev Event) {
	c.subMu.RLock()
	targets := make([]chan Event, 0, len(c.subscribers))
	for _, ch := range c.subscribers {
		targets = append(targets, ch)
	}
	// sends happen under the read lock so Unsubscribe cannot close a
	// channel mid-send
	for _, ch := range targets {
		select {
		case ch <- ev:
		default:
			c.logger.Debug("dropped event for slow subscriber", "key", ev.Key, "type", ev.Type)
		}
	}
	c.subMu.RUnlock()
}

// Unsubscribe removes a subscription and closes its channel.
func (c *Cache) Unsubscribe(subID string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	ch, ok := c.subscribers[subID]
	if !ok {
		return
	}
	delete(c.subscribers, subID)
	close(ch)

	c.logger.Debug("subscriber removed", "sub_id", subID)
}

// Close drops every subscription and closes its channel.
func (c *Cache) Close() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for subID, ch := range c.subscribers {
		close(ch)
		delete(c.subscribers, subID)
	}
}
