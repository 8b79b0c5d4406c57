// Package engramstore provides the local SQLite-backed secondary index over
// Engram session snapshots and the durable single-producer/single-consumer
// pending-signal queue the batch processor drains (§6, §5 "Shared-resource
// policy").
package engramstore

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps a local SQLite database. It never talks to the graph engine;
// it is a secondary index and durable queue that sits beside it.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS engram_index (
	engram_id   TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	timestamp   INTEGER NOT NULL,
	branch      TEXT NOT NULL DEFAULT '',
	commit_sha  TEXT NOT NULL DEFAULT '',
	intent      TEXT NOT NULL DEFAULT '',
	file_path   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_engram_index_session ON engram_index(session_id);
CREATE INDEX IF NOT EXISTS idx_engram_index_timestamp ON engram_index(timestamp);
CREATE INDEX IF NOT EXISTS idx_engram_index_commit ON engram_index(commit_sha);

CREATE TABLE IF NOT EXISTS pending_signals (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	payload     TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	enqueued_at INTEGER NOT NULL,
	claimed_at  INTEGER NOT NULL DEFAULT 0,
	processed_at INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_pending_signals_unclaimed ON pending_signals(claimed_at, id);

CREATE TABLE IF NOT EXISTS decisions (
	decision_id TEXT PRIMARY KEY,
	module      TEXT NOT NULL DEFAULT '',
	statement   TEXT NOT NULL DEFAULT '',
	confidence  REAL NOT NULL DEFAULT 0,
	outcome     TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_module ON decisions(module, created_at);
`

// Open creates or opens the engram store database, ensures its schema, and
// runs incremental migrations for pre-existing files. The DSN carries the
// teacher's WAL + busy-timeout pragmas for the same reason the teacher's
// internal/store uses them: a single local writer with occasional
// concurrent readers should never hit SQLITE_BUSY under normal load.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("engramstore: open %s: %w", dbPath, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("engramstore: create schema: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("engramstore: migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// migrate applies incremental schema migrations for existing databases,
// guarded by pragma_table_info column checks, matching the teacher's
// internal/store/store.go migration idiom.
func migrate(db *sql.DB) error {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('pending_signals') WHERE name = 'source'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("check source column: %w", err)
	}
	if count == 0 {
		if _, err := db.Exec(`ALTER TABLE pending_signals ADD COLUMN source TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("add source column: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}
