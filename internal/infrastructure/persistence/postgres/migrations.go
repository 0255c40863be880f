package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
}

// Migrate applies all pending migrations, tracking them in schema_migrations.
func (c *Connection) Migrate(ctx context.Context) error {
	_, err := c.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("%w: create migrations table: %v", ErrMigrationFailed, err)
	}

	applied := make(map[int]bool)
	rows, err := c.pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("%w: read applied migrations: %v", ErrMigrationFailed, err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("%w: scan migration row: %v", ErrMigrationFailed, err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	for _, mig := range migrations() {
		if applied[mig.Version] {
			continue
		}
		err := c.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
				mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
	}

	return nil
}

func migrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_ledger_events",
			UpSQL: `
				CREATE TABLE IF NOT EXISTS ledger_events (
					seq BIGSERIAL PRIMARY KEY,
					event_id UUID NOT NULL UNIQUE,
					student_id UUID NOT NULL,
					school_id UUID NOT NULL,
					event_type TEXT NOT NULL,
					occurred_at TIMESTAMPTZ NOT NULL,
					payload JSONB NOT NULL DEFAULT '{}',
					hash TEXT NOT NULL,
					previous_hash TEXT NOT NULL,
					status TEXT NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_ledger_events_student
					ON ledger_events (student_id, seq);
				CREATE INDEX IF NOT EXISTS idx_ledger_events_student_type
					ON ledger_events (student_id, event_type, seq);
			`,
		},
		{
			Version: 2,
			Name:    "create_report_anchors",
			UpSQL: `
				CREATE TABLE IF NOT EXISTS report_anchors (
					report_id UUID PRIMARY KEY,
					student_id UUID NOT NULL,
					school_id UUID NOT NULL,
					period_start TIMESTAMPTZ NOT NULL,
					period_end TIMESTAMPTZ NOT NULL,
					merkle_root TEXT NOT NULL,
					event_count INTEGER NOT NULL,
					report_hash TEXT NOT NULL,
					anchored_at TIMESTAMPTZ NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_report_anchors_student
					ON report_anchors (student_id, anchored_at DESC);
			`,
		},
	}
}
