// Package tablestore persists computed hexbin result tables in SQLite so
// expensive grid/assignment work survives server restarts.
package tablestore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hexmap-sc/server/internal/hexbin"
)

// Key identifies one cached table.
type Key struct {
	Dataset   string
	Embedding string
	Nbins     int
	Column    string
	Action    string
}

// Store is a SQLite-backed table cache. Safe for concurrent use.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens the store at path, creating parent directories
// as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS hexbin_tables (
			dataset     TEXT    NOT NULL,
			embedding   TEXT    NOT NULL,
			nbins       INTEGER NOT NULL,
			column_name TEXT    NOT NULL,
			action      TEXT    NOT NULL,
			payload     BLOB    NOT NULL,
			created_at  INTEGER NOT NULL,
			PRIMARY KEY (dataset, embedding, nbins, column_name, action)
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save stores a table under the key, replacing any previous entry.
func (s *Store) Save(key Key, table *hexbin.Table) error {
	payload, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to marshal table: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO hexbin_tables
			(dataset, embedding, nbins, column_name, action, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		key.Dataset, key.Embedding, key.Nbins, key.Column, key.Action,
		payload, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save table: %w", err)
	}
	return nil
}

// Load retrieves a table; ok is false when the key has no entry.
func (s *Store) Load(key Key) (*hexbin.Table, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payload []byte
	err := s.db.QueryRow(`
		SELECT payload FROM hexbin_tables
		WHERE dataset = ? AND embedding = ? AND nbins = ? AND column_name = ? AND action = ?`,
		key.Dataset, key.Embedding, key.Nbins, key.Column, key.Action).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load table: %w", err)
	}

	var table hexbin.Table
	if err := json.Unmarshal(payload, &table); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal table: %w", err)
	}
	return &table, true, nil
}

// Prune removes entries older than the retention window.
func (s *Store) Prune(retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-retention).Unix()
	res, err := s.db.Exec(`DELETE FROM hexbin_tables WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune tables: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
