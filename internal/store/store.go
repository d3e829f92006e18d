package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for saved runs.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Metadata returns the value stored for key, or "" if the key is unset.
func (s *Store) Metadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("metadata %q: %w", key, err)
	}
	return value, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS modules (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  hash            TEXT,
  analyzed_at     TIMESTAMP
);

CREATE TABLE IF NOT EXISTS exports (
  id              INTEGER PRIMARY KEY,
  module_id       INTEGER NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
  name            TEXT NOT NULL,
  local           TEXT NOT NULL,
  kind            TEXT NOT NULL CHECK (kind IN ('value', 'type')),
  UNIQUE (module_id, kind, name)
);

CREATE TABLE IF NOT EXISTS export_all (
  module_id       INTEGER NOT NULL REFERENCES modules(id) ON DELETE CASCADE,
  ordinal         INTEGER NOT NULL,
  target          TEXT NOT NULL,
  PRIMARY KEY (module_id, ordinal)
);

CREATE TABLE IF NOT EXISTS usages (
  module          TEXT NOT NULL,
  symbol          TEXT NOT NULL,
  PRIMARY KEY (module, symbol)
);

CREATE TABLE IF NOT EXISTS findings (
  id              INTEGER PRIMARY KEY,
  module          TEXT NOT NULL,
  name            TEXT NOT NULL,
  local           TEXT NOT NULL,
  kind            TEXT NOT NULL,
  used_in_module  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_exports_module ON exports(module_id);
CREATE INDEX IF NOT EXISTS idx_findings_module ON findings(module);
`
