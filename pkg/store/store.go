// Package store provides SQLite-backed persistence of document
// snapshots: open/migrate/load/store/count, with a schema of exactly
// the one column this library needs (plain text).
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a SQLite connection holding document snapshots. It
// implements internal/coordinator.Loader.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at uri and
// runs any pending migrations.
func Open(uri string) (*Store, error) {
	db, err := sql.Open("sqlite3", uri)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the persisted text for id. ok is false if no snapshot
// has ever been stored for id.
func (s *Store) Load(id string) (text string, ok bool, err error) {
	err = s.db.QueryRow(`SELECT text FROM document WHERE id = ?`, id).Scan(&text)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: load %q: %w", id, err)
	}
	return text, true, nil
}

// Store upserts the snapshot for id.
func (s *Store) Store(id, text string) error {
	_, err := s.db.Exec(`
		INSERT INTO document (id, text)
		VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET text = excluded.text
	`, id, text)
	if err != nil {
		return fmt.Errorf("store: store %q: %w", id, err)
	}
	return nil
}

// Delete removes the snapshot for id, if any.
func (s *Store) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM document WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete %q: %w", id, err)
	}
	return nil
}

// Count returns the number of snapshots currently stored.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM document`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}
