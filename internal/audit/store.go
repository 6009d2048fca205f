// Package audit implements the optional black-box recorder: a SQLite
// append-only log of element state transitions, used for post-incident
// reconstruction of what the tower did and when.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite connection holding the event log.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the SQLite database at path and runs
// migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping audit db: %w", err)
	}

	// Event records arrive in write bursts during route staging; WAL lets
	// readers (e.g. an operator tailing recent events) run concurrently.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("set journal_mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;"); err != nil {
		return nil, fmt.Errorf("set synchronous: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	const createEvents = `CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		station TEXT NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		value TEXT NOT NULL
	);`
	if _, err := s.db.ExecContext(ctx, createEvents); err != nil {
		return err
	}

	// tower_instance_id added after the initial release to attribute
	// events across process restarts; idempotent for pre-existing databases.
	if _, err := s.db.ExecContext(ctx, "ALTER TABLE events ADD COLUMN tower_instance_id TEXT NOT NULL DEFAULT ''"); err != nil {
		if !strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
			s.logger.Warn("audit migration: add tower_instance_id skipped", "error", err)
		}
	}

	const createIndex = `CREATE INDEX IF NOT EXISTS idx_events_station_name ON events(station, name);`
	if _, err := s.db.ExecContext(ctx, createIndex); err != nil {
		return err
	}

	return nil
}

// RecordEvent appends one element state-change record. Safe to call from
// the actor loop: it does not block on network I/O, only local disk.
func (s *Store) RecordEvent(ctx context.Context, station, towerInstanceID, kind, name, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (station, kind, name, value, tower_instance_id) VALUES (?, ?, ?, ?, ?)`,
		station, kind, name, value, towerInstanceID,
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// Event is one row of the recorded event log, returned by Recent.
type Event struct {
	ID         int64
	RecordedAt time.Time
	Station    string
	Kind       string
	Name       string
	Value      string
}

// Recent returns the most recent n events across all elements, newest
// first.
func (s *Store) Recent(ctx context.Context, n int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recorded_at, station, kind, name, value FROM events ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.RecordedAt, &e.Station, &e.Kind, &e.Name, &e.Value); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
