// Package journal records every CLI operation in a local SQLite database
// so `reorc history` can show what ran, with which parameters, and how it
// ended. Journal failures never fail the operation being recorded.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"reorc-cli/internal/core"
	"reorc-cli/internal/journal/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store persists operation records.
type Store struct {
	db    *sql.DB
	clock core.Clock
	path  string
}

// Operation is one recorded CLI invocation.
type Operation struct {
	ID         int64  `json:"id"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	Operation  string `json:"operation"`
	Parameters string `json:"parameters"`
	Status     string `json:"status"`
}

// Open opens (or creates) the journal database at path and migrates it to
// the latest schema. path can be ":memory:" for tests.
func Open(path string, clock core.Clock) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, clock: clock, path: path}, nil
}

// Begin records the start of an operation and returns its journal ID.
func (s *Store) Begin(operation, parameters string) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO operations (started_at, operation, parameters, status) VALUES (?, ?, ?, 'running')",
		s.clock.Now().UTC().Format(time.RFC3339), operation, parameters)
	if err != nil {
		return 0, fmt.Errorf("recording operation start: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading operation id: %w", err)
	}
	return id, nil
}

// Finish records the terminal status of a previously begun operation.
func (s *Store) Finish(id int64, status string) error {
	_, err := s.db.Exec(
		"UPDATE operations SET finished_at = ?, status = ? WHERE id = ?",
		s.clock.Now().UTC().Format(time.RFC3339), status, id)
	if err != nil {
		return fmt.Errorf("recording operation finish: %w", err)
	}
	return nil
}

// List returns the most recent operations, newest first.
func (s *Store) List(limit int) ([]Operation, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		"SELECT id, started_at, finished_at, operation, parameters, status FROM operations ORDER BY id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []Operation
	for rows.Next() {
		var op Operation
		var finished sql.NullString
		if err := rows.Scan(&op.ID, &op.StartedAt, &finished, &op.Operation, &op.Parameters, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning operation row: %w", err)
		}
		if finished.Valid {
			op.FinishedAt = finished.String
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating operations: %w", err)
	}
	return ops, nil
}

// Path returns the journal database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the journal database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
