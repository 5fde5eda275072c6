package registry

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a single database schema migration.
type Migration struct {
	Version     int
	Description string
	Up          string
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "create file_state table",
		Up: `
			CREATE TABLE IF NOT EXISTS file_state (
				path TEXT PRIMARY KEY,
				size INTEGER NOT NULL,
				mod_time TIMESTAMP NOT NULL,
				hash TEXT NOT NULL,
				extension TEXT,
				mime_type TEXT,
				last_seen_at TIMESTAMP NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_file_state_hash ON file_state(hash);
		`,
	},
}

// Migrate brings db up to the latest schema version, recording each applied
// migration in schema_migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		return fmt.Errorf("creating schema_migrations table; %w", err)
	}

	current, err := GetSchemaVersion(ctx, db)
	if err != nil {
		return fmt.Errorf("reading schema version; %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := runMigration(ctx, db, m); err != nil {
			return fmt.Errorf("applying migration %d (%s); %w", m.Version, m.Description, err)
		}
	}

	return nil
}

// GetSchemaVersion returns the highest applied migration version.
func GetSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// runMigration executes a single migration within a transaction.
func runMigration(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction; %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return fmt.Errorf("executing migration; %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
		m.Version, m.Description,
	); err != nil {
		return fmt.Errorf("recording migration; %w", err)
	}

	return tx.Commit()
}
