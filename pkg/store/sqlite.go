package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists finished orbit sessions to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at dbPath and migrates the
// schema. WAL mode is enabled for concurrency and durability.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the tables if they don't exist.
func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		entry_movie_id TEXT NOT NULL,
		current_movie_id TEXT NOT NULL,
		history_index INTEGER NOT NULL,
		saved_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- History nodes in visit order. The movie is stored as a JSON blob:
	-- the core only ever queries by id, everything else is display data.
	CREATE TABLE IF NOT EXISTS session_nodes (
		session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		movie_id TEXT NOT NULL,
		movie JSON NOT NULL,
		entered_at DATETIME NOT NULL,
		saved INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (session_id, position)
	);

	-- Edges reference movie ids, not node positions: branching may have
	-- truncated the node an edge points at, and that is expected.
	CREATE TABLE IF NOT EXISTS session_edges (
		session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		from_movie_id TEXT NOT NULL,
		to_movie_id TEXT NOT NULL,
		connection_type TEXT NOT NULL,
		reason TEXT,
		score REAL,
		PRIMARY KEY (session_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_movie ON session_nodes(movie_id);
	CREATE INDEX IF NOT EXISTS idx_nodes_saved ON session_nodes(saved);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create session tables: %w", err)
	}

	return nil
}
