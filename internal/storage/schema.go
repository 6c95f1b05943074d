package storage

import (
	"context"
	"database/sql"
)

// replaceSchema drops and recreates both history tables inside tx. Nothing
// is visible to other connections until tx commits.
func replaceSchema(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`DROP TABLE IF EXISTS watch_history`,
		`DROP TABLE IF EXISTS search_history`,

		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE watch_history (
			title             TEXT,
			time              TEXT,
			channel_name      TEXT,
			video_id          TEXT,
			category_id       TEXT,
			category_name     TEXT,
			video_description TEXT
		)`,

		`CREATE TABLE search_history (
			title          TEXT,
			time           TEXT,
			video_id       TEXT,
			is_video       BOOLEAN NOT NULL DEFAULT 0,
			category_guess TEXT
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX idx_watch_time     ON watch_history(time)`,
		`CREATE INDEX idx_watch_channel  ON watch_history(channel_name)`,
		`CREATE INDEX idx_watch_category ON watch_history(category_name)`,
		`CREATE INDEX idx_search_time    ON search_history(time)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// dropSchema removes both history tables inside tx.
func dropSchema(ctx context.Context, tx *sql.Tx) error {
	for _, stmt := range []string{
		`DROP TABLE IF EXISTS watch_history`,
		`DROP TABLE IF EXISTS search_history`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
