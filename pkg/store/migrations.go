package store

import (
	"database/sql"
	"embed"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/quillpad/quillpad/pkg/otlog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrate applies every migration under migrations/ that hasn't been
// recorded in schema_migrations yet, in filename order.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			filename   TEXT NOT NULL,
			applied_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read current version: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	applied := 0
	for i, entry := range entries {
		version := i + 1
		if version <= current {
			continue
		}

		name := entry.Name()
		content, err := migrationsFS.ReadFile(path.Join("migrations", name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := db.Exec(
			`INSERT INTO schema_migrations (version, filename, applied_at) VALUES (?, ?, ?)`,
			version, name, time.Now().Unix(),
		); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		applied++
	}

	if applied > 0 {
		otlog.L().Infow("applied database migrations", "count", applied)
	}
	return nil
}
