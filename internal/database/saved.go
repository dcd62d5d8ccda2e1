package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const savedColumns = `id, watchlist_id, library_id, title, category, domain, time_horizon,
	last_run_date, drift_status, run_count, notes`

// InsertSavedScenario stores a new saved scenario with its versions.
func (db *DB) InsertSavedScenario(ctx context.Context, s scenario.SavedScenario) error {
	if err := s.CheckVersions(); err != nil {
		return err
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	horizon, err := json.Marshal(s.TimeHorizon)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO saved_scenarios (`+savedColumns+`, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.WatchlistID, nullable(s.LibraryID), s.Title, string(s.Category), string(s.Domain),
		string(horizon), timePtr(s.LastRunDate), string(s.DriftStatus), s.RunCount, nullable(s.Notes),
		formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("inserting saved scenario %s: %w", s.ID, err)
	}

	for _, v := range s.Versions {
		if err := insertVersion(ctx, tx, s.ID, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetSavedScenario returns a saved scenario with its full history, or nil
// when no scenario has the id.
func (db *DB) GetSavedScenario(ctx context.Context, id string) (*scenario.SavedScenario, error) {
	return getSaved(ctx, db.conn, id)
}

// ListSavedScenarios returns saved scenarios in creation order. An empty
// watchlistID lists every watchlist.
func (db *DB) ListSavedScenarios(ctx context.Context, watchlistID string) ([]scenario.SavedScenario, error) {
	query := `SELECT ` + savedColumns + ` FROM saved_scenarios`
	var args []any
	if watchlistID != "" {
		query += " WHERE watchlist_id = ?"
		args = append(args, watchlistID)
	}
	query += " ORDER BY created_at, rowid"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var out []scenario.SavedScenario
	for rows.Next() {
		s, err := scanSaved(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		versions, err := loadVersions(ctx, db.conn, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Versions = versions
		if err := out[i].CheckVersions(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UpdateSavedScenario loads a saved scenario, applies fn and writes the
// result back in one transaction. Versions appended by fn are inserted;
// existing versions are immutable. A missing id wraps ErrUnknownScenario.
func (db *DB) UpdateSavedScenario(ctx context.Context, id string, fn func(*scenario.SavedScenario) error) (*scenario.SavedScenario, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	s, err := getSaved(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %s", scenario.ErrUnknownScenario, id)
	}
	existing := len(s.Versions)

	if err := fn(s); err != nil {
		return nil, err
	}
	if len(s.Versions) < existing {
		return nil, fmt.Errorf("saved scenario %s: versions cannot be removed", id)
	}
	if err := s.CheckVersions(); err != nil {
		return nil, err
	}

	horizon, err := json.Marshal(s.TimeHorizon)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE saved_scenarios SET watchlist_id = ?, title = ?, time_horizon = ?, last_run_date = ?,
			drift_status = ?, run_count = ?, notes = ? WHERE id = ?`,
		s.WatchlistID, s.Title, string(horizon), timePtr(s.LastRunDate),
		string(s.DriftStatus), s.RunCount, nullable(s.Notes), id,
	); err != nil {
		return nil, fmt.Errorf("updating saved scenario %s: %w", id, err)
	}

	for _, v := range s.Versions[existing:] {
		if err := insertVersion(ctx, tx, id, v); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s, nil
}

// CountSavedScenarios returns the number of saved scenarios per watchlist.
func (db *DB) CountSavedScenarios(ctx context.Context) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT watchlist_id, COUNT(*) FROM saved_scenarios GROUP BY watchlist_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func getSaved(ctx context.Context, q querier, id string) (*scenario.SavedScenario, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+savedColumns+` FROM saved_scenarios WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if !rows.Next() {
		err := rows.Err()
		rows.Close()
		return nil, err
	}
	s, err := scanSaved(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	s.Versions, err = loadVersions(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if err := s.CheckVersions(); err != nil {
		return nil, err
	}
	return s, nil
}

func scanSaved(rows *sql.Rows) (*scenario.SavedScenario, error) {
	var s scenario.SavedScenario
	var libraryID, domain, lastRun, notes *string
	var category, horizon, drift string
	if err := rows.Scan(&s.ID, &s.WatchlistID, &libraryID, &s.Title, &category, &domain, &horizon,
		&lastRun, &drift, &s.RunCount, &notes); err != nil {
		return nil, err
	}

	s.Category = scenario.Category(category)
	s.DriftStatus = scenario.DriftStatus(drift)
	if libraryID != nil {
		s.LibraryID = *libraryID
	}
	if domain != nil {
		s.Domain = scenario.Domain(*domain)
	}
	if notes != nil {
		s.Notes = *notes
	}
	if lastRun != nil {
		t, err := parseTime(*lastRun)
		if err != nil {
			return nil, err
		}
		s.LastRunDate = &t
	}
	if err := json.Unmarshal([]byte(horizon), &s.TimeHorizon); err != nil {
		return nil, fmt.Errorf("decoding time horizon of %s: %w", s.ID, err)
	}
	return &s, nil
}

func loadVersions(ctx context.Context, q querier, savedID string) ([]scenario.PromptVersion, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, version_number, type, text, created, notes, changes
		FROM prompt_versions WHERE saved_id = ? ORDER BY version_number`, savedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []scenario.PromptVersion
	for rows.Next() {
		var v scenario.PromptVersion
		var typ, created string
		var notes, changes *string
		if err := rows.Scan(&v.ID, &v.VersionNumber, &typ, &v.Text, &created, &notes, &changes); err != nil {
			return nil, err
		}
		v.Type = scenario.VersionType(typ)
		if v.Created, err = parseTime(created); err != nil {
			return nil, err
		}
		if notes != nil {
			v.Notes = *notes
		}
		if changes != nil {
			if err := json.Unmarshal([]byte(*changes), &v.Changes); err != nil {
				v.Changes = nil
			}
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func insertVersion(ctx context.Context, q querier, savedID string, v scenario.PromptVersion) error {
	var changes *string
	if len(v.Changes) > 0 {
		data, err := json.Marshal(v.Changes)
		if err != nil {
			return err
		}
		s := string(data)
		changes = &s
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO prompt_versions (id, saved_id, version_number, type, text, created, notes, changes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, savedID, v.VersionNumber, string(v.Type), v.Text, formatTime(v.Created), nullable(v.Notes), changes,
	)
	if err != nil {
		return fmt.Errorf("inserting version %d of %s: %w", v.VersionNumber, savedID, err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func timePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
