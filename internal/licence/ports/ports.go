// Package ports declares the collaborator contracts the licence services
// depend on. Implementations live in store packages and the platform layer.
package ports

import (
	"context"
	"log/slog"
	"time"

	"larch/internal/licence/models"
	id "larch/pkg/domain"
	audit "larch/pkg/platform/audit"
)

// Repository persists the application aggregate. Get returns a detached
// snapshot; Save rejects stale snapshots with CodeConflict so callers can
// re-read and retry. Each call is transactional on its own; the withdrawal
// sweep spans multiple steps via a context transaction (pkg/platform/tx).
type Repository interface {
	Get(ctx context.Context, applicationID id.ApplicationID) (*models.Application, error)
	Save(ctx context.Context, app *models.Application) error
	ListByStatus(ctx context.Context, status id.FellingStatus) ([]*models.Application, error)
}

// Clock supplies the current time. Injected so transitions and the
// time-in-status threshold checks are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// AuditPublisher records an event fire-and-forget; its own failure is never
// surfaced to the transition outcome.
type AuditPublisher interface {
	Publish(ctx context.Context, event audit.Event)
}

// LogAudit writes the event to both the structured logger and the audit
// publisher. Either may be nil.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.Event) {
	if logger != nil {
		logger.InfoContext(ctx, string(event.Name),
			"application_id", event.ApplicationID,
			"actor_id", event.ActorID,
			"log_type", "audit",
		)
	}
	if publisher != nil {
		publisher.Publish(ctx, event)
	}
}
