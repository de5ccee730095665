//go:build integration

// Package containers manages shared test containers for integration tests.
// Containers are started once per test binary and reused across suites;
// Ryuk reaps them when the run finishes.
package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const schema = `
CREATE TABLE IF NOT EXISTS applications (
	id                        UUID PRIMARY KEY,
	reference                 TEXT NOT NULL,
	owner_id                  UUID NOT NULL,
	created_by_id             UUID NOT NULL,
	region                    TEXT NOT NULL DEFAULT '',
	review_completed_by       UUID,
	review_completed_at       TIMESTAMPTZ,
	review_publish            BOOLEAN,
	register_correlation_id   UUID,
	register_exempt           BOOLEAN NOT NULL DEFAULT FALSE,
	consultation_published_at TIMESTAMPTZ,
	consultation_expires_at   TIMESTAMPTZ,
	consultation_removed_at   TIMESTAMPTZ,
	decision_published_at     TIMESTAMPTZ,
	decision_expires_at       TIMESTAMPTZ,
	decision_removed_at       TIMESTAMPTZ,
	version                   BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS application_status_entries (
	application_id UUID NOT NULL,
	entry_index    INT NOT NULL,
	status         TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	created_by     UUID,
	PRIMARY KEY (application_id, entry_index)
);

CREATE TABLE IF NOT EXISTS application_assignment_entries (
	application_id UUID NOT NULL,
	entry_index    INT NOT NULL,
	role           TEXT NOT NULL,
	user_id        UUID NOT NULL,
	assigned_at    TIMESTAMPTZ NOT NULL,
	unassigned_at  TIMESTAMPTZ,
	PRIMARY KEY (application_id, entry_index)
);

CREATE TABLE IF NOT EXISTS accounts (
	id           UUID PRIMARY KEY,
	email        TEXT NOT NULL,
	first_name   TEXT NOT NULL DEFAULT '',
	last_name    TEXT NOT NULL DEFAULT '',
	account_type TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_events (
	id             BIGSERIAL PRIMARY KEY,
	name           TEXT NOT NULL,
	category       TEXT NOT NULL,
	occurred_at    TIMESTAMPTZ NOT NULL,
	application_id UUID NOT NULL,
	actor_id       UUID,
	data           JSONB
);
`

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// schema already applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
	DSN       string
}

// TruncateTables empties the named tables. Use between tests for isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s", strings.Join(tables, ", ")))
	return err
}

// Manager hands out shared containers, starting each at most once per test
// binary.
type Manager struct {
	mu       sync.Mutex
	postgres *PostgresContainer
}

var manager = &Manager{}

func GetManager() *Manager {
	return manager
}

// GetPostgres returns the shared PostgreSQL container, starting it on first
// use.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.postgres != nil {
		return m.postgres
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("larch_test"),
		tcpostgres.WithUsername("larch"),
		tcpostgres.WithPassword("larch"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	m.postgres = &PostgresContainer{Container: container, DB: db, DSN: dsn}
	return m.postgres
}
