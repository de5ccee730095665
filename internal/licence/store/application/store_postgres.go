package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"larch/internal/licence/models"
	id "larch/pkg/domain"
	dErrors "larch/pkg/domain-errors"
	platformtx "larch/pkg/platform/tx"
)

// PostgresStore persists application aggregates. History collections live in
// child tables keyed by (application_id, entry_index); entries are only ever
// inserted, except that an assignment entry's unassigned_at may be filled in
// when the assignment closes.
//
// Save participates in a caller-managed transaction when one is carried in
// the context; otherwise it opens its own.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) querier {
	if tx, ok := platformtx.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Get(ctx context.Context, applicationID id.ApplicationID) (*models.Application, error) {
	q := s.conn(ctx)

	app := &models.Application{}
	var (
		reviewCompletedBy uuid.NullUUID
		reviewCompletedAt sql.NullTime
		reviewPublish     sql.NullBool
		correlationID     uuid.NullUUID
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, reference, owner_id, created_by_id, region,
		       review_completed_by, review_completed_at, review_publish,
		       register_correlation_id, register_exempt,
		       consultation_published_at, consultation_expires_at, consultation_removed_at,
		       decision_published_at, decision_expires_at, decision_removed_at,
		       version
		FROM applications
		WHERE id = $1`, applicationID.String(),
	).Scan(
		&app.ID, &app.Reference, &app.OwnerID, &app.CreatedByID, &app.Region,
		&reviewCompletedBy, &reviewCompletedAt, &reviewPublish,
		&correlationID, &app.PublicRegister.ExemptFromConsultation,
		&app.PublicRegister.ConsultationPublishedAt, &app.PublicRegister.ConsultationExpiresAt, &app.PublicRegister.ConsultationRemovedAt,
		&app.PublicRegister.DecisionPublishedAt, &app.PublicRegister.DecisionExpiresAt, &app.PublicRegister.DecisionRemovedAt,
		&app.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "application %s not found", applicationID)
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}

	if reviewCompletedBy.Valid {
		app.ApproverReview = &models.ApproverReview{
			CompletedByID:             id.UserID(reviewCompletedBy.UUID),
			CompletedAt:               reviewCompletedAt.Time,
			PublishToDecisionRegister: reviewPublish.Bool,
		}
	}
	if correlationID.Valid {
		cid := id.CorrelationID(correlationID.UUID)
		app.PublicRegister.CorrelationID = &cid
	}

	if app.StatusHistory, err = s.loadStatusEntries(ctx, q, applicationID); err != nil {
		return nil, err
	}
	if app.AssignmentHistory, err = s.loadAssignmentEntries(ctx, q, applicationID); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *PostgresStore) loadStatusEntries(ctx context.Context, q querier, applicationID id.ApplicationID) ([]models.StatusEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT status, created_at, created_by
		FROM application_status_entries
		WHERE application_id = $1
		ORDER BY entry_index`, applicationID.String())
	if err != nil {
		return nil, fmt.Errorf("load status entries: %w", err)
	}
	defer rows.Close()

	var entries []models.StatusEntry
	for rows.Next() {
		var (
			entry     models.StatusEntry
			status    string
			createdBy uuid.NullUUID
		)
		if err := rows.Scan(&status, &entry.CreatedAt, &createdBy); err != nil {
			return nil, fmt.Errorf("scan status entry: %w", err)
		}
		entry.Status = id.FellingStatus(status)
		if createdBy.Valid {
			entry.CreatedBy = id.UserID(createdBy.UUID)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) loadAssignmentEntries(ctx context.Context, q querier, applicationID id.ApplicationID) ([]models.AssignmentEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT role, user_id, assigned_at, unassigned_at
		FROM application_assignment_entries
		WHERE application_id = $1
		ORDER BY entry_index`, applicationID.String())
	if err != nil {
		return nil, fmt.Errorf("load assignment entries: %w", err)
	}
	defer rows.Close()

	var entries []models.AssignmentEntry
	for rows.Next() {
		var (
			entry models.AssignmentEntry
			role  string
		)
		if err := rows.Scan(&role, &entry.UserID, &entry.AssignedAt, &entry.UnassignedAt); err != nil {
			return nil, fmt.Errorf("scan assignment entry: %w", err)
		}
		entry.Role = id.AssignedRole(role)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Save writes the aggregate with an optimistic version check. A version
// mismatch means a concurrent transition won and the caller must re-read.
func (s *PostgresStore) Save(ctx context.Context, app *models.Application) error {
	if app == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "application is required")
	}

	if tx, ok := platformtx.From(ctx); ok {
		return s.save(ctx, tx, app)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	if err := s.save(ctx, tx, app); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (s *PostgresStore) save(ctx context.Context, q querier, app *models.Application) error {
	var (
		reviewCompletedBy uuid.NullUUID
		reviewCompletedAt sql.NullTime
		reviewPublish     sql.NullBool
		correlationID     uuid.NullUUID
	)
	if app.ApproverReview != nil {
		reviewCompletedBy = uuid.NullUUID{UUID: uuid.UUID(app.ApproverReview.CompletedByID), Valid: true}
		reviewCompletedAt = sql.NullTime{Time: app.ApproverReview.CompletedAt, Valid: true}
		reviewPublish = sql.NullBool{Bool: app.ApproverReview.PublishToDecisionRegister, Valid: true}
	}
	if app.PublicRegister.CorrelationID != nil {
		correlationID = uuid.NullUUID{UUID: uuid.UUID(*app.PublicRegister.CorrelationID), Valid: true}
	}

	if app.Version == 0 {
		_, err := q.ExecContext(ctx, `
			INSERT INTO applications (
				id, reference, owner_id, created_by_id, region,
				review_completed_by, review_completed_at, review_publish,
				register_correlation_id, register_exempt,
				consultation_published_at, consultation_expires_at, consultation_removed_at,
				decision_published_at, decision_expires_at, decision_removed_at,
				version
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1)`,
			app.ID.String(), app.Reference, app.OwnerID.String(), app.CreatedByID.String(), app.Region,
			reviewCompletedBy, reviewCompletedAt, reviewPublish,
			correlationID, app.PublicRegister.ExemptFromConsultation,
			app.PublicRegister.ConsultationPublishedAt, app.PublicRegister.ConsultationExpiresAt, app.PublicRegister.ConsultationRemovedAt,
			app.PublicRegister.DecisionPublishedAt, app.PublicRegister.DecisionExpiresAt, app.PublicRegister.DecisionRemovedAt,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
				return dErrors.New(dErrors.CodeConflict, "application already exists")
			}
			return fmt.Errorf("insert application: %w", err)
		}
	} else {
		result, err := q.ExecContext(ctx, `
			UPDATE applications SET
				reference = $2, owner_id = $3, created_by_id = $4, region = $5,
				review_completed_by = $6, review_completed_at = $7, review_publish = $8,
				register_correlation_id = $9, register_exempt = $10,
				consultation_published_at = $11, consultation_expires_at = $12, consultation_removed_at = $13,
				decision_published_at = $14, decision_expires_at = $15, decision_removed_at = $16,
				version = version + 1
			WHERE id = $1 AND version = $17`,
			app.ID.String(), app.Reference, app.OwnerID.String(), app.CreatedByID.String(), app.Region,
			reviewCompletedBy, reviewCompletedAt, reviewPublish,
			correlationID, app.PublicRegister.ExemptFromConsultation,
			app.PublicRegister.ConsultationPublishedAt, app.PublicRegister.ConsultationExpiresAt, app.PublicRegister.ConsultationRemovedAt,
			app.PublicRegister.DecisionPublishedAt, app.PublicRegister.DecisionExpiresAt, app.PublicRegister.DecisionRemovedAt,
			app.Version,
		)
		if err != nil {
			return fmt.Errorf("update application: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("update application: %w", err)
		}
		if affected == 0 {
			return dErrors.Newf(dErrors.CodeConflict,
				"application %s modified concurrently (snapshot version %d)", app.ID, app.Version)
		}
	}

	if err := s.saveStatusEntries(ctx, q, app); err != nil {
		return err
	}
	if err := s.saveAssignmentEntries(ctx, q, app); err != nil {
		return err
	}
	app.Version++
	return nil
}

func (s *PostgresStore) saveStatusEntries(ctx context.Context, q querier, app *models.Application) error {
	for i, entry := range app.StatusHistory {
		var createdBy uuid.NullUUID
		if !entry.CreatedBy.IsNil() {
			createdBy = uuid.NullUUID{UUID: uuid.UUID(entry.CreatedBy), Valid: true}
		}
		_, err := q.ExecContext(ctx, `
			INSERT INTO application_status_entries (application_id, entry_index, status, created_at, created_by)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (application_id, entry_index) DO NOTHING`,
			app.ID.String(), i, entry.Status.String(), entry.CreatedAt, createdBy,
		)
		if err != nil {
			return fmt.Errorf("insert status entry %d: %w", i, err)
		}
	}
	return nil
}

func (s *PostgresStore) saveAssignmentEntries(ctx context.Context, q querier, app *models.Application) error {
	for i, entry := range app.AssignmentHistory {
		_, err := q.ExecContext(ctx, `
			INSERT INTO application_assignment_entries (application_id, entry_index, role, user_id, assigned_at, unassigned_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (application_id, entry_index) DO UPDATE SET unassigned_at = EXCLUDED.unassigned_at`,
			app.ID.String(), i, entry.Role.String(), entry.UserID.String(), entry.AssignedAt, entry.UnassignedAt,
		)
		if err != nil {
			return fmt.Errorf("insert assignment entry %d: %w", i, err)
		}
	}
	return nil
}

// ListByStatus returns every application whose current status matches. Used
// by the automatic withdrawal sweep; batch sizes are expected to be small.
func (s *PostgresStore) ListByStatus(ctx context.Context, status id.FellingStatus) ([]*models.Application, error) {
	q := s.conn(ctx)

	rows, err := q.QueryContext(ctx, `
		SELECT a.id
		FROM applications a
		JOIN LATERAL (
			SELECT e.status
			FROM application_status_entries e
			WHERE e.application_id = a.id
			ORDER BY e.created_at DESC, e.entry_index DESC
			LIMIT 1
		) current ON TRUE
		WHERE current.status = $1
		ORDER BY a.id`, status.String())
	if err != nil {
		return nil, fmt.Errorf("list by status: %w", err)
	}
	defer rows.Close()

	var ids []id.ApplicationID
	for rows.Next() {
		var applicationID id.ApplicationID
		if err := rows.Scan(&applicationID); err != nil {
			return nil, fmt.Errorf("scan application id: %w", err)
		}
		ids = append(ids, applicationID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	apps := make([]*models.Application, 0, len(ids))
	for _, applicationID := range ids {
		app, err := s.Get(ctx, applicationID)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, nil
}
