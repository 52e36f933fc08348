// Package journal keeps a best-effort local record of what each startup
// changed. It must never fail a reconciliation: every error is logged and
// swallowed.
package journal

import (
	"context"
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Journal records directive writes and provisioning events in a local
// sqlite database. A Journal with a nil handle (failed open, empty path)
// is valid and discards records.
type Journal struct {
	db *sql.DB
}

// Open initializes the journal at path. An empty path disables it. Any
// failure is logged and yields a discarding journal.
func Open(path string) *Journal {
	if path == "" {
		return &Journal{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("journal mkdir failed: %v", err)
		return &Journal{}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Printf("journal open failed: %v", err)
		return &Journal{}
	}
	db.SetMaxOpenConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Printf("journal ping failed: %v", err)
		_ = db.Close()
		return &Journal{}
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS changes(kind TEXT, name TEXT, detail TEXT, ts INTEGER); CREATE INDEX IF NOT EXISTS idx_changes_kind ON changes(kind);`); err != nil {
		log.Printf("journal init schema failed: %v", err)
		_ = db.Close()
		return &Journal{}
	}
	return &Journal{db: db}
}

// Record stores one change. kind is "directive" or an event name; name
// identifies the directive or artifact; detail is free-form.
func (j *Journal) Record(kind, name, detail string) {
	if j == nil || j.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _ = j.db.ExecContext(ctx, `INSERT INTO changes(kind, name, detail, ts) VALUES(?,?,?,?)`, kind, name, detail, time.Now().Unix())
}

// Close releases the database handle. Safe on a discarding journal.
func (j *Journal) Close() {
	if j == nil || j.db == nil {
		return
	}
	_ = j.db.Close()
}
