package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/yoda/internal/history"
)

// timeLayout is fixed width so that string order equals time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store defines the persistence operations for imported history.
type Store interface {
	Save(ctx context.Context, watch []history.WatchRecord, search []history.SearchRecord) error
	Load(ctx context.Context) ([]history.WatchRecord, []history.SearchRecord, error)
	Stats(ctx context.Context) (*Stats, error)
	Purge(ctx context.Context) error
	Close() error
}

// Options controls how Open configures the database.
type Options struct {
	JournalMode   string // "wal" by default
	BusyTimeoutMS int
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	ownsDB bool
}

// Open opens (or creates) the SQLite database at path.
func Open(path string, opts Options) (*SQLiteStore, error) {
	journal := strings.ToUpper(opts.JournalMode)
	if journal == "" {
		journal = "WAL"
	}
	busy := opts.BusyTimeoutMS
	if busy <= 0 {
		busy = 5000
	}

	dsn := fmt.Sprintf("%s?_journal_mode=%s&_busy_timeout=%d", path, journal, busy)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Single writer; also keeps ":memory:" databases on one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := NewSQLiteStore(db)
	s.ownsDB = true
	return s, nil
}

// NewSQLiteStore wraps an already-opened database. The caller keeps
// ownership of db.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save replaces both history tables with the given rows. Everything happens
// in one transaction; on error the previously committed tables are untouched.
func (s *SQLiteStore) Save(ctx context.Context, watch []history.WatchRecord, search []history.SearchRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := replaceSchema(ctx, tx); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	if err := insertWatch(ctx, tx, watch); err != nil {
		return fmt.Errorf("save watch rows: %w", err)
	}
	if err := insertSearch(ctx, tx, search); err != nil {
		return fmt.Errorf("save search rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertWatch(ctx context.Context, tx *sql.Tx, rows []history.WatchRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO watch_history (title, time, channel_name, video_id, category_id, category_name, video_description)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range rows {
		_, err := stmt.ExecContext(ctx,
			r.Title, formatTime(r.Time), r.ChannelName, r.VideoID,
			r.CategoryID, r.CategoryName, r.VideoDescription,
		)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

func insertSearch(ctx context.Context, tx *sql.Tx, rows []history.SearchRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO search_history (title, time, video_id, is_video, category_guess)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range rows {
		_, err := stmt.ExecContext(ctx,
			r.Title, formatTime(r.Time), r.VideoID, r.IsVideo, r.CategoryGuess,
		)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

// Load reads both tables back in insertion order. Missing tables load as
// empty slices.
func (s *SQLiteStore) Load(ctx context.Context) ([]history.WatchRecord, []history.SearchRecord, error) {
	watch := []history.WatchRecord{}
	search := []history.SearchRecord{}

	ok, err := s.tableExists(ctx, "watch_history")
	if err != nil {
		return nil, nil, err
	}
	if ok {
		if watch, err = s.loadWatch(ctx); err != nil {
			return nil, nil, fmt.Errorf("load watch rows: %w", err)
		}
	}

	ok, err = s.tableExists(ctx, "search_history")
	if err != nil {
		return nil, nil, err
	}
	if ok {
		if search, err = s.loadSearch(ctx); err != nil {
			return nil, nil, fmt.Errorf("load search rows: %w", err)
		}
	}

	return watch, search, nil
}

func (s *SQLiteStore) loadWatch(ctx context.Context) ([]history.WatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, time, channel_name, video_id, category_id, category_name, video_description
		FROM watch_history ORDER BY rowid
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []history.WatchRecord{}
	for rows.Next() {
		var r history.WatchRecord
		var ts, title, channel, videoID, catID, catName, desc sql.NullString
		if err := rows.Scan(&title, &ts, &channel, &videoID, &catID, &catName, &desc); err != nil {
			return nil, err
		}
		r.Title = nullable(title)
		r.Time = parseTime(ts)
		r.ChannelName = nullable(channel)
		r.VideoID = nullable(videoID)
		r.CategoryID = nullable(catID)
		r.CategoryName = nullable(catName)
		r.VideoDescription = nullable(desc)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) loadSearch(ctx context.Context) ([]history.SearchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, time, video_id, is_video, category_guess
		FROM search_history ORDER BY rowid
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []history.SearchRecord{}
	for rows.Next() {
		var r history.SearchRecord
		var title, ts, id, guess sql.NullString
		if err := rows.Scan(&title, &ts, &id, &r.IsVideo, &guess); err != nil {
			return nil, err
		}
		r.Title = nullable(title)
		r.Time = parseTime(ts)
		r.VideoID = nullable(id)
		r.CategoryGuess = nullable(guess)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) tableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return n > 0, nil
}

// Purge drops both history tables.
func (s *SQLiteStore) Purge(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := dropSchema(ctx, tx); err != nil {
		return fmt.Errorf("purge: %w", err)
	}
	return tx.Commit()
}

// Stats returns aggregate statistics about the stored history.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	hasWatch, err := s.tableExists(ctx, "watch_history")
	if err != nil {
		return nil, err
	}
	hasSearch, err := s.tableExists(ctx, "search_history")
	if err != nil {
		return nil, err
	}
	stats.HasImportData = hasWatch && hasSearch

	if hasSearch {
		err = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*), COALESCE(SUM(is_video), 0) FROM search_history",
		).Scan(&stats.SearchRows, &stats.SearchVideos)
		if err != nil {
			return nil, fmt.Errorf("count search rows: %w", err)
		}
	}
	if !hasWatch {
		return stats, nil
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(category_id) FROM watch_history",
	).Scan(&stats.WatchRows, &stats.EnrichedRows)
	if err != nil {
		return nil, fmt.Errorf("count watch rows: %w", err)
	}

	if stats.WatchRows > 0 {
		var oldest, newest sql.NullString
		err = s.db.QueryRowContext(ctx, "SELECT MIN(time), MAX(time) FROM watch_history").Scan(&oldest, &newest)
		if err != nil {
			return nil, fmt.Errorf("watch time range: %w", err)
		}
		if t := parseTime(oldest); t != nil {
			stats.OldestWatch = *t
		}
		if t := parseTime(newest); t != nil {
			stats.NewestWatch = *t
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT channel_name, COUNT(*) AS cnt FROM watch_history
		WHERE channel_name IS NOT NULL
		GROUP BY channel_name ORDER BY cnt DESC, MIN(rowid) LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("top channels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cc ChannelCount
		if err := rows.Scan(&cc.Channel, &cc.Count); err != nil {
			return nil, err
		}
		stats.TopChannels = append(stats.TopChannels, cc)
	}

	return stats, rows.Err()
}

// Close closes the database if the store opened it. A handle passed to
// NewSQLiteStore stays open.
func (s *SQLiteStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := parseTimestamp(ns.String)
	if err != nil {
		return nil
	}
	return &t
}

// parseTimestamp tries several common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		timeLayout,
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
