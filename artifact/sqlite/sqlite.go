// Package sqlite provides a durable core.ArtifactStore backed by SQLite
// (modernc.org/sqlite, no cgo). Finished research reports are kept here so
// they can be downloaded after a restart.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hupe1980/researchcrew/artifact"
	_ "modernc.org/sqlite"
)

// Store implements core.ArtifactStore on a single SQLite table.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path, enables WAL mode and
// applies migrations.
func New(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %s: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS artifacts (
			session_id  TEXT NOT NULL,
			artifact_id TEXT NOT NULL,
			data        BLOB NOT NULL,
			created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (session_id, artifact_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_updated ON artifacts(updated_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// Save stores (or overwrites) the artifact bytes.
func (s *Store) Save(sessionID, artifactID string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.Exec(`
		INSERT INTO artifacts (session_id, artifact_id, data)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id, artifact_id) DO UPDATE SET
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP`,
		sessionID, artifactID, data)
	if err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	return nil
}

// Get returns the artifact bytes or artifact.ErrNotFound.
func (s *Store) Get(sessionID, artifactID string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(
		`SELECT data FROM artifacts WHERE session_id = ? AND artifact_id = ?`,
		sessionID, artifactID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, artifact.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return data, nil
}

// List returns the artifact ids of a session in lexical order.
func (s *Store) List(sessionID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT artifact_id FROM artifacts WHERE session_id = ? ORDER BY artifact_id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes the artifact or returns artifact.ErrNotFound.
func (s *Store) Delete(sessionID, artifactID string) error {
	res, err := s.db.Exec(
		`DELETE FROM artifacts WHERE session_id = ? AND artifact_id = ?`,
		sessionID, artifactID,
	)
	if err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	if n == 0 {
		return artifact.ErrNotFound
	}
	return nil
}
