// ABOUTME: Optional session event recording and shared options for auth components
// ABOUTME: Lets bootstrap, login, and expiry handling append to the local session history

package auth

import (
	"context"
	"log/slog"

	"github.com/2389/hris-console/internal/store"
)

// EventRecorder appends session lifecycle events. *store.SQLiteStore satisfies it.
type EventRecorder interface {
	AppendSessionEvent(ctx context.Context, e *store.SessionEvent) error
}

type options struct {
	logger   *slog.Logger
	recorder EventRecorder
}

// Option configures the auth components.
type Option func(*options)

// WithLogger sets the logger. Nil keeps the default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecorder records lifecycle events to rec.
func WithRecorder(rec EventRecorder) Option {
	return func(o *options) { o.recorder = rec }
}

func buildOptions(component string, opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With("component", component)
	return o
}

// record appends an event when a recorder is configured. Failures are logged only.
func (o options) record(ctx context.Context, kind store.EventKind, userID string, detail map[string]any) {
	if o.recorder == nil {
		return
	}
	e := &store.SessionEvent{Kind: kind, UserID: userID, Detail: detail}
	if err := o.recorder.AppendSessionEvent(ctx, e); err != nil {
		o.logger.Warn("recording session event failed", "kind", kind, "error", err)
	}
}
