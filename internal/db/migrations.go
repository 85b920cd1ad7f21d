package db

import (
	"database/sql"
	"fmt"
)

// Base schema - uses Snowflake IDs (no AUTOINCREMENT)
const baseSchema = `
CREATE TABLE IF NOT EXISTS connections (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  kind TEXT NOT NULL,
  data_partition_id TEXT,
  project_name TEXT,
  db_schema TEXT,
  last_health TEXT,
  last_checked_at TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ai_history (
  id INTEGER PRIMARY KEY,
  prompt TEXT NOT NULL UNIQUE,
  filter TEXT NOT NULL,
  explanation TEXT,
  created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ai_history_created_at ON ai_history(created_at);
`

func Migrate(db *sql.DB) error {
	if _, err := db.Exec(baseSchema); err != nil {
		return fmt.Errorf("migrate base schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func runMigrations(db *sql.DB) error {
	// Migration 1: Add last_error column to connections for failed health checks
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info('connections') WHERE name = 'last_error'
	`).Scan(&count)
	if err != nil {
		return fmt.Errorf("check last_error column: %w", err)
	}

	if count == 0 {
		if _, err := db.Exec(`ALTER TABLE connections ADD COLUMN last_error TEXT`); err != nil {
			return fmt.Errorf("add last_error column: %w", err)
		}
	}

	// Migration 2: Index on kind for the per-platform connection listing
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_connections_kind ON connections(kind)`); err != nil {
		return fmt.Errorf("create idx_connections_kind: %w", err)
	}

	return nil
}
