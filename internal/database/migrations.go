package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS session_entries (
    position INTEGER PRIMARY KEY,
    scenario_id TEXT NOT NULL,
    curated INTEGER NOT NULL DEFAULT 0,
    payload TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS session_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    revision INTEGER NOT NULL DEFAULT 0,
    updated_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS watchlists (
    id TEXT PRIMARY KEY,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    type TEXT NOT NULL,
    subtype TEXT
);

CREATE TABLE IF NOT EXISTS saved_scenarios (
    id TEXT PRIMARY KEY,
    watchlist_id TEXT NOT NULL REFERENCES watchlists(id),
    library_id TEXT,
    title TEXT NOT NULL,
    category TEXT NOT NULL,
    domain TEXT,
    time_horizon TEXT NOT NULL,
    last_run_date TEXT,
    drift_status TEXT NOT NULL,
    run_count INTEGER NOT NULL DEFAULT 0,
    notes TEXT,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS prompt_versions (
    id TEXT PRIMARY KEY,
    saved_id TEXT NOT NULL REFERENCES saved_scenarios(id),
    version_number INTEGER NOT NULL,
    type TEXT NOT NULL,
    text TEXT NOT NULL,
    created TEXT NOT NULL,
    notes TEXT,
    changes TEXT,
    UNIQUE (saved_id, version_number)
);

CREATE INDEX IF NOT EXISTS idx_saved_scenarios_watchlist ON saved_scenarios(watchlist_id);
CREATE INDEX IF NOT EXISTS idx_prompt_versions_saved ON prompt_versions(saved_id);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "generation run log",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS generation_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    subject TEXT,
    entry_count INTEGER NOT NULL DEFAULT 0,
    error TEXT,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL
);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
