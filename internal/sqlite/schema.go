package sqlite

import (
	"database/sql"
	"fmt"
)

// Schema DDL. Every statement is idempotent so Open can run it against an
// existing database.
const (
	createItems = `CREATE TABLE IF NOT EXISTS items (
    fixture TEXT NOT NULL,
    item_id TEXT NOT NULL,
    data TEXT NOT NULL,
    imported_at TEXT NOT NULL,
    PRIMARY KEY (fixture, item_id)
);`

	createLocales = `CREATE TABLE IF NOT EXISTS locales (
    tag TEXT PRIMARY KEY,
    xml TEXT NOT NULL,
    source TEXT NOT NULL,
    imported_at TEXT NOT NULL
);`

	createRuns = `CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    fixture TEXT NOT NULL,
    mode TEXT NOT NULL,
    engine TEXT NOT NULL,
    passed INTEGER NOT NULL,
    output TEXT,
    error TEXT,
    created_at TEXT NOT NULL
);`
)

// Index DDL for the history queries.
const (
	idxItemsFixture  = `CREATE INDEX IF NOT EXISTS idx_items_fixture ON items(fixture);`
	idxRunsFixture   = `CREATE INDEX IF NOT EXISTS idx_runs_fixture ON runs(fixture);`
	idxRunsCreatedAt = `CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);`
)

var schemaDDL = []string{
	createItems,
	createLocales,
	createRuns,
}

var indexDDL = []string{
	idxItemsFixture,
	idxRunsFixture,
	idxRunsCreatedAt,
}

func applySchema(db *sql.DB) error {
	for _, stmt := range append(append([]string{}, schemaDDL...), indexDDL...) {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
