// ABOUTME: Page-level permission guard with a loading state and timeout
// ABOUTME: Emits loading, then a single allowed, denied or timeout outcome

package gate

import (
	"context"
	"log/slog"
	"time"
)

// DefaultGuardTimeout bounds how long a page waits for its permission check.
const DefaultGuardTimeout = 3500 * time.Millisecond

// Status is the state of a page guard.
type Status string

const (
	StatusLoading Status = "loading"
	StatusAllowed Status = "allowed"
	StatusDenied  Status = "denied"
	StatusTimeout Status = "timeout"
)

// Final reports whether s settles the guard.
func (s Status) Final() bool {
	return s == StatusAllowed || s == StatusDenied || s == StatusTimeout
}

// PageGuard gates a page behind one permission.
type PageGuard struct {
	checker Checker
	timeout time.Duration
	logger  *slog.Logger
}

// NewPageGuard creates a guard. A non-positive timeout selects DefaultGuardTimeout.
func NewPageGuard(checker Checker, timeout time.Duration, logger *slog.Logger) *PageGuard {
	if timeout <= 0 {
		timeout = DefaultGuardTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PageGuard{checker: checker, timeout: timeout, logger: logger.With("component", "page_guard")}
}

// Watch starts the check for resource/action. The channel yields
// StatusLoading, then exactly one final status, then closes. Errors count
// as denial. Cancelling ctx closes the channel without a final status.
func (g *PageGuard) Watch(ctx context.Context, resource, action string) <-chan Status {
	out := make(chan Status, 2)
	out <- StatusLoading

	checkCtx, cancel := context.WithCancel(ctx)
	result := make(chan Status, 1)
	go func() {
		allowed, err := g.checker.Can(checkCtx, resource, action)
		switch {
		case err != nil:
			g.logger.Debug("page check failed", "resource", resource, "action", action, "error", err)
			result <- StatusDenied
		case allowed:
			result <- StatusAllowed
		default:
			result <- StatusDenied
		}
	}()

	go func() {
		defer close(out)
		defer cancel()

		timer := time.NewTimer(g.timeout)
		defer timer.Stop()

		select {
		case s := <-result:
			out <- s
		case <-timer.C:
			g.logger.Info("page check timed out", "resource", resource, "action", action, "timeout", g.timeout)
			out <- StatusTimeout
		case <-ctx.Done():
		}
	}()
	return out
}

// Check runs Watch to completion and returns the final status, or
// StatusLoading when ctx ends first.
func (g *PageGuard) Check(ctx context.Context, resource, action string) Status {
	last := StatusLoading
	for s := range g.Watch(ctx, resource, action) {
		last = s
	}
	return last
}
