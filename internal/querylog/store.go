// Package querylog persists search audit records and admin-tunable
// settings (§3, §6) in an embedded modernc.org/sqlite database,
// grounded on the teacher pack's internal/store.SQLiteStore
// (database/sql over modernc.org/sqlite, WAL mode, ExecContext/
// QueryRowContext, sql.Null* for optional columns).
package querylog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the query_logs/admin_settings database handle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the sqlite file at path in WAL
// mode and ensures the schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("querylog: create dir %s: %w", dir, err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("querylog: open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("querylog: ping db: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS query_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		username TEXT,
		first_name TEXT,
		chat_id INTEGER NOT NULL,
		chat_type TEXT NOT NULL,
		query TEXT NOT NULL,
		search_type TEXT,
		search_user TEXT,
		search_mode TEXT,
		results_count INTEGER NOT NULL,
		page_number INTEGER NOT NULL,
		processing_time_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_logs_timestamp ON query_logs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_query_logs_user_id ON query_logs(user_id);
	CREATE INDEX IF NOT EXISTS idx_query_logs_chat_id ON query_logs(chat_id);

	CREATE TABLE IF NOT EXISTS admin_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		value_type TEXT NOT NULL,
		description TEXT,
		updated_at INTEGER NOT NULL,
		updated_by INTEGER
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("querylog: create schema: %w", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Entry is one row of query_logs.
type Entry struct {
	UserID           int64
	Username         string
	FirstName        string
	ChatID           int64
	ChatType         string
	Query            string
	SearchType       string
	SearchUser       string
	SearchMode       string
	ResultsCount     int
	PageNumber       int
	ProcessingTimeMs int64
	Timestamp        time.Time
}

// LogQuery inserts one search audit record.
func (s *Store) LogQuery(ctx context.Context, e Entry) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_logs (
			timestamp, user_id, username, first_name, chat_id, chat_type,
			query, search_type, search_user, search_mode, results_count,
			page_number, processing_time_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.Unix(), e.UserID, e.Username, e.FirstName, e.ChatID, e.ChatType,
		e.Query, e.SearchType, e.SearchUser, e.SearchMode, e.ResultsCount,
		e.PageNumber, e.ProcessingTimeMs,
	)
	if err != nil {
		return fmt.Errorf("querylog: insert entry: %w", err)
	}
	return nil
}

// UserStats summarizes a user's recent query volume, as returned by
// StatsForUser.
type UserStats struct {
	QueryCount   int64
	LastQueryAt  time.Time
}

// StatsForUser returns how many queries userID has logged since since.
func (s *Store) StatsForUser(ctx context.Context, userID int64, since time.Time) (UserStats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(MAX(timestamp), 0)
		FROM query_logs WHERE user_id = ? AND timestamp >= ?`,
		userID, since.Unix())

	var count int64
	var lastTS int64
	if err := row.Scan(&count, &lastTS); err != nil {
		return UserStats{}, fmt.Errorf("querylog: stats for user: %w", err)
	}
	stats := UserStats{QueryCount: count}
	if lastTS > 0 {
		stats.LastQueryAt = time.Unix(lastTS, 0)
	}
	return stats, nil
}
