package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"facewatch/internal/core"
	"facewatch/internal/idgen"
	"facewatch/internal/storage"
)

// SQLiteStorage implements storage.Storage using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage instance
func New(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The tick worker and the session listener both append
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{
		db: db,
	}

	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return storage, nil
}

// migrate creates the database schema
func (s *SQLiteStorage) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			score INTEGER NOT NULL,
			self_lock INTEGER NOT NULL DEFAULT 0,
			detail TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
		CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// AppendEvent stores an event, assigning an ID and timestamp when missing
func (s *SQLiteStorage) AppendEvent(ctx context.Context, event *core.Event) error {
	if event.ID == "" {
		event.ID = idgen.NewEvent()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var detail sql.NullString
	if event.Detail != "" {
		detail = sql.NullString{String: event.Detail, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, kind, score, self_lock, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, event.ID, string(event.Kind), event.Score, event.SelfLock, detail, event.CreatedAt.UTC())

	return err
}

// ListEvents returns events newest first
func (s *SQLiteStorage) ListEvents(ctx context.Context, filter storage.EventFilter) ([]*core.Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = storage.DefaultEventLimit
	}
	limit = min(limit, storage.MaxEventLimit)

	query := `SELECT id, kind, score, self_lock, detail, created_at FROM events WHERE 1=1`
	var args []interface{}
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// CountEvents counts events of a kind since a time; empty kind counts all
func (s *SQLiteStorage) CountEvents(ctx context.Context, kind core.EventKind, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events
		WHERE (? = '' OR kind = ?) AND created_at >= ?
	`, string(kind), string(kind), since.UTC()).Scan(&count)
	return count, err
}

// PruneEvents deletes events older than before and reports how many were removed
func (s *SQLiteStorage) PruneEvents(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Helper functions

func scanEvents(rows *sql.Rows) ([]*core.Event, error) {
	events := []*core.Event{}

	for rows.Next() {
		var event core.Event
		var kind string
		var detail sql.NullString

		if err := rows.Scan(&event.ID, &kind, &event.Score, &event.SelfLock, &detail, &event.CreatedAt); err != nil {
			return nil, err
		}

		event.Kind = core.EventKind(kind)
		event.Detail = detail.String
		events = append(events, &event)
	}

	return events, rows.Err()
}

// Ensure SQLiteStorage implements the interfaces
var (
	_ storage.Storage = (*SQLiteStorage)(nil)
	_ core.Journal    = (*SQLiteStorage)(nil)
)
