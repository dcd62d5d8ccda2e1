package database

import (
	"context"
	"fmt"
	"time"
)

// GenerationRun is one logged call to the generation collaborator.
type GenerationRun struct {
	ID         int64
	Subject    string
	EntryCount int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// InsertGenerationRun records a generation attempt.
func (db *DB) InsertGenerationRun(ctx context.Context, r GenerationRun) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO generation_runs (subject, entry_count, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?)`,
		nullable(r.Subject), r.EntryCount, nullable(r.Error), formatTime(r.StartedAt), formatTime(r.FinishedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting generation run: %w", err)
	}
	return result.LastInsertId()
}

// RecentGenerationRuns returns up to limit runs, newest first.
func (db *DB) RecentGenerationRuns(ctx context.Context, limit int) ([]GenerationRun, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, subject, entry_count, error, started_at, finished_at
		FROM generation_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []GenerationRun
	for rows.Next() {
		var r GenerationRun
		var subject, errText *string
		var started, finished string
		if err := rows.Scan(&r.ID, &subject, &r.EntryCount, &errText, &started, &finished); err != nil {
			return nil, err
		}
		if subject != nil {
			r.Subject = *subject
		}
		if errText != nil {
			r.Error = *errText
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
