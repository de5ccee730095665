package worker

import (
	"context"
	"log/slog"

	audit "larch/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them. Persistence
// failures are logged and skipped; the audit pipeline must never wedge on a
// bad sink.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func New(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil && w.logger != nil {
				w.logger.ErrorContext(ctx, "audit append failed",
					"event", string(event.Name),
					"application_id", event.ApplicationID,
					"error", err,
				)
			}
		}
	}
}
