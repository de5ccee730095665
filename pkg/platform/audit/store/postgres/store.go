package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	id "larch/pkg/domain"
	audit "larch/pkg/platform/audit"
)

// Store persists audit events in PostgreSQL. Rows are append-only; there is
// deliberately no update or delete path.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal audit data: %w", err)
	}

	var actor any
	if !event.ActorID.IsNil() {
		actor = uuid.UUID(event.ActorID)
	}

	query := `
		INSERT INTO audit_events (name, category, occurred_at, application_id, actor_id, data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.db.ExecContext(ctx, query,
		string(event.Name),
		string(event.Category),
		event.Timestamp,
		uuid.UUID(event.ApplicationID),
		actor,
		data,
	); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByApplication(ctx context.Context, applicationID id.ApplicationID) ([]audit.Event, error) {
	query := `
		SELECT name, category, occurred_at, application_id, actor_id, data
		FROM audit_events
		WHERE application_id = $1
		ORDER BY occurred_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(applicationID))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			event   audit.Event
			appID   uuid.UUID
			actorID uuid.NullUUID
			data    []byte
		)
		if err := rows.Scan(&event.Name, &event.Category, &event.Timestamp, &appID, &actorID, &data); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.ApplicationID = id.ApplicationID(appID)
		if actorID.Valid {
			event.ActorID = id.UserID(actorID.UUID)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &event.Data); err != nil {
				return nil, fmt.Errorf("unmarshal audit data: %w", err)
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
