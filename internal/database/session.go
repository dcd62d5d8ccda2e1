package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

// ReplaceSessionEntries overwrites the persisted working set and its
// revision in one transaction.
func (db *DB) ReplaceSessionEntries(ctx context.Context, entries []scenario.Entry, revision uint64) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM session_entries"); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}

	for i, e := range entries {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding entry %s: %w", e.ID(), err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_entries (position, scenario_id, curated, payload) VALUES (?, ?, ?, ?)`,
			i, e.ID(), e.IsCurated(), string(payload),
		); err != nil {
			return fmt.Errorf("inserting entry %s: %w", e.ID(), err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO session_state (id, revision, updated_at) VALUES (1, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET revision = excluded.revision, updated_at = excluded.updated_at`,
		int64(revision),
	); err != nil {
		return fmt.Errorf("saving session revision: %w", err)
	}

	return tx.Commit()
}

// SessionEntries returns the persisted working set in order, with its revision.
func (db *DB) SessionEntries(ctx context.Context) ([]scenario.Entry, uint64, error) {
	var revision int64
	err := db.conn.QueryRowContext(ctx, "SELECT revision FROM session_state WHERE id = 1").Scan(&revision)
	if err != nil && err != sql.ErrNoRows {
		return nil, 0, err
	}

	rows, err := db.conn.QueryContext(ctx, "SELECT payload FROM session_entries ORDER BY position")
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []scenario.Entry
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, 0, err
		}
		var e scenario.Entry
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, 0, fmt.Errorf("decoding session entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, uint64(revision), rows.Err()
}
