// Package journal keeps a sqlite history of the values merged from the device.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/f3xlab/fieldsync/internal/wire"
)

// timeFormat is fixed width so received_at sorts as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one recorded field value.
type Entry struct {
	ID         string    `json:"id"`
	FieldID    string    `json:"field_id"`
	Value      string    `json:"value"`
	Min        string    `json:"min,omitempty"`
	Max        string    `json:"max,omitempty"`
	Source     string    `json:"source"`
	ReceivedAt time.Time `json:"received_at"`
}

// Store records merged updates in SQLite.
type Store struct {
	mu sync.RWMutex
	db *sql.DB
}

// Open opens (or creates) a journal. Use ":memory:" for an in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// Each connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS field_values (
		id          TEXT PRIMARY KEY,
		field_id    TEXT NOT NULL,
		value       TEXT NOT NULL,
		min         TEXT,
		max         TEXT,
		source      TEXT NOT NULL,
		received_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_field_values_field ON field_values(field_id, received_at);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// RecordUpdates stores every update of msg in one transaction.
func (s *Store) RecordUpdates(ctx context.Context, source string, msg wire.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(timeFormat)
	for _, u := range msg {
		var lo, hi *string
		if u.HasRange {
			lo, hi = &u.Min, &u.Max
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO field_values (id, field_id, value, min, max, source, received_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), u.ID, u.Value, lo, hi, source, now,
		)
		if err != nil {
			return fmt.Errorf("insert %q: %w", u.ID, err)
		}
	}
	return tx.Commit()
}

// Recent returns up to limit entries, newest first. An empty fieldID
// matches every field.
func (s *Store) Recent(ctx context.Context, fieldID string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, field_id, value, min, max, source, received_at
		FROM field_values`
	args := []any{}
	if fieldID != "" {
		query += " WHERE field_id = ?"
		args = append(args, fieldID)
	}
	query += " ORDER BY received_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var lo, hi sql.NullString
		var receivedAt string
		if err := rows.Scan(&e.ID, &e.FieldID, &e.Value, &lo, &hi, &e.Source, &receivedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		e.Min = lo.String
		e.Max = hi.String
		e.ReceivedAt, _ = time.Parse(timeFormat, receivedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
