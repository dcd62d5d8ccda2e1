package database

import (
	"context"
	"fmt"

	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

// UpsertWatchlists inserts or updates watchlists, recording their order.
// Watchlists not named are left in place after the given ones.
func (db *DB) UpsertWatchlists(ctx context.Context, ws []scenario.Watchlist) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, w := range ws {
		var subtype *string
		if w.Subtype != "" {
			s := string(w.Subtype)
			subtype = &s
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO watchlists (id, position, name, type, subtype) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET position = excluded.position, name = excluded.name,
				type = excluded.type, subtype = excluded.subtype`,
			w.ID, i, w.Name, string(w.Type), subtype,
		); err != nil {
			return fmt.Errorf("upserting watchlist %s: %w", w.ID, err)
		}
	}
	return tx.Commit()
}

// Watchlists returns all watchlists in seed order.
func (db *DB) Watchlists(ctx context.Context) ([]scenario.Watchlist, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, name, type, subtype FROM watchlists ORDER BY position, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ws []scenario.Watchlist
	for rows.Next() {
		var w scenario.Watchlist
		var typ string
		var subtype *string
		if err := rows.Scan(&w.ID, &w.Name, &typ, &subtype); err != nil {
			return nil, err
		}
		w.Type = scenario.WatchlistType(typ)
		if subtype != nil {
			w.Subtype = scenario.WatchlistSubtype(*subtype)
		}
		ws = append(ws, w)
	}
	return ws, rows.Err()
}
