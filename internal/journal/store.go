// Package journal persists wire traffic to SQLite for after-the-fact
// inspection of a session.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Message directions.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// Entry is one recorded frame.
type Entry struct {
	ID        int64
	Time      time.Time
	Direction string
	Payload   string
}

// Store records traffic in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	// WAL mode: the transport goroutine writes while the host may read.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal db: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS traffic (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			ts        TEXT NOT NULL,
			direction TEXT NOT NULL,
			payload   TEXT NOT NULL
		)
	`)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one frame. direction is DirectionIn or DirectionOut.
func (s *Store) Record(direction, payload string) error {
	_, err := s.db.Exec(
		"INSERT INTO traffic (ts, direction, payload) VALUES (?, ?, ?)",
		time.Now().UTC().Format(time.RFC3339Nano), direction, payload,
	)
	return err
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	rows, err := s.db.Query(
		"SELECT id, ts, direction, payload FROM traffic ORDER BY id DESC LIMIT ?", n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.Direction, &e.Payload); err != nil {
			return nil, err
		}
		if e.Time, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse journal timestamp: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
