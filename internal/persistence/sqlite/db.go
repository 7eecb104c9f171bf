// Package sqlite contains the SQLite implementations of the domain
// repository interfaces, backed by a single database file.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens (creating if needed) the database file at path, applies the
// schema and seeds the lote reference data.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := Init(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Init applies the schema and the lote seed to an open connection. It is
// idempotent and safe to run on every startup.
func Init(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(SchemaSQL); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := SeedLotes(db); err != nil {
		return err
	}
	return nil
}
