package upload

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// StateDB remembers the hash of the last blob pushed per key so unchanged
// collections are not re-sent.
type StateDB struct {
	db *sql.DB
}

// OpenStateDB opens (or creates) the SQLite state database at dir/sync-state.db.
func OpenStateDB(dir string) (*StateDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "sync-state.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS pushed_blobs (
		key       TEXT PRIMARY KEY,
		hash      TEXT NOT NULL,
		pushed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}

	return &StateDB{db: db}, nil
}

// IsPushed reports whether key was last pushed with the given hash.
func (s *StateDB) IsPushed(key, hash string) (bool, error) {
	var stored string
	err := s.db.QueryRow(`SELECT hash FROM pushed_blobs WHERE key = ?`, key).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored == hash, nil
}

// MarkPushed records that key was successfully pushed with hash.
func (s *StateDB) MarkPushed(key, hash string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO pushed_blobs (key, hash, pushed_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		key, hash,
	)
	return err
}

// Close closes the state database.
func (s *StateDB) Close() error {
	return s.db.Close()
}

// HashBlob computes the SHA-256 hash of a blob.
func HashBlob(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
