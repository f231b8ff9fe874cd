// Package sqlite is the ledger's event journal.
//
// The journal is an append-only audit trail of committed ledger events. It is
// never read back to rebuild state. Uses the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory journal.
const MemoryPath = ":memory:"

// DB wraps the journal connection. Each DB tags its rows with a run ID so
// sequence numbers from separate processes never collide.
type DB struct {
	db    *sql.DB
	path  string
	runID string
}

// Open opens or creates a journal at path and applies migrations.
func Open(path string) (*DB, error) {
	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// One writer; an in-memory database also vanishes per connection.
	conn.SetMaxOpenConns(1)

	db := &DB{db: conn, path: path, runID: uuid.NewString()}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the connection.
func (db *DB) Close() error {
	return db.db.Close()
}

// Path returns the journal location.
func (db *DB) Path() string { return db.path }

// RunID identifies this process's rows.
func (db *DB) RunID() string { return db.runID }

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the journal schema statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ledger_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL,
			seq        INTEGER NOT NULL,
			type       TEXT NOT NULL,
			at         TEXT NOT NULL,
			action_id  TEXT,
			reward_id  TEXT,
			category   TEXT,
			amount     INTEGER NOT NULL DEFAULT 0,
			balance    INTEGER NOT NULL DEFAULT 0,
			status     TEXT,
			note       TEXT,
			UNIQUE(run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_events_action ON ledger_events(action_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_events_type ON ledger_events(type, at)`,
	}
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate journal: %w", err)
		}
	}
	return nil
}
