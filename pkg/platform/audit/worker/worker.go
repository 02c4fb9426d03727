package worker

import (
	"context"
	"log/slog"

	audit "github.com/Kakrote/udyam-registration-app/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them. Store
// failures are logged and the event is dropped; the worker keeps going.
type Worker struct {
	store   audit.Store
	inbox   <-chan audit.Event
	logger  *slog.Logger
	onError func()
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithErrorHook is called once per failed Append.
func WithErrorHook(fn func()) Option {
	return func(w *Worker) {
		w.onError = fn
	}
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, opts ...Option) *Worker {
	w := &Worker{store: store, inbox: inbox, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run persists events until the inbox is closed and drained, or ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.persist(ctx, event)
		}
	}
}

func (w *Worker) persist(ctx context.Context, event audit.Event) {
	if err := w.store.Append(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to persist audit event",
			"action", event.Action,
			"subject", event.Subject,
			"error", err,
		)
		if w.onError != nil {
			w.onError()
		}
	}
}
