// Package sqlite provides an embedded store so single-machine crawls run
// without a database server. It satisfies the same contracts as the
// Postgres stores.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// DB wraps the shared SQLite handle behind both stores.
type DB struct {
	db *sql.DB
}

// Open opens or creates the database file at path and ensures the schema.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one writer; a single pooled connection also makes
	// the claim transaction serialize cleanly.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	d := &DB{db: db}
	if err := d.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// FrontierStore returns the frontier view of the database.
func (d *DB) FrontierStore() *FrontierStore {
	return &FrontierStore{db: d.db}
}

// DocumentStore returns the documents view of the database.
func (d *DB) DocumentStore() *DocumentStore {
	return &DocumentStore{db: d.db}
}

func (d *DB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS frontier (
		url TEXT PRIMARY KEY,
		source_domain TEXT NOT NULL,
		status TEXT NOT NULL,
		next_eligible_at INTEGER NOT NULL,
		discovered_at INTEGER NOT NULL,
		last_error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_frontier_claim ON frontier(status, next_eligible_at, discovered_at);

	CREATE TABLE IF NOT EXISTS documents (
		url TEXT PRIMARY KEY,
		raw_content BLOB NOT NULL,
		source_domain TEXT NOT NULL,
		crawled_at INTEGER NOT NULL,
		content_hash TEXT NOT NULL,
		etag TEXT NOT NULL DEFAULT '',
		last_modified TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_documents_domain ON documents(source_domain);
	CREATE INDEX IF NOT EXISTS idx_documents_crawled ON documents(crawled_at);
	`
	if _, err := d.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Timestamps persist as unix nanoseconds so eligibility comparisons stay
// plain integer comparisons.
func toUnix(t time.Time) int64 {
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
