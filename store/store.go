// Package store persists compiled Opal code in a content-addressed
// SQLite database.
//
// Code objects are keyed by the SHA-256 of their canonical wire encoding,
// so identical bodies share one row regardless of how often they are
// stored. Images are keyed by their UUID identity.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/chazu/opal/vm"
	"github.com/chazu/opal/vm/wire"
)

// Store is a content-addressed database of serialized code objects and
// images.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS code_objects (
	hash       TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	data       BLOB NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS images (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	data       BLOB NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Open opens (creating if necessary) a store at the given path. Use
// ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Code objects
// ---------------------------------------------------------------------------

// HashCode returns the content hash of a code object: the SHA-256 of its
// canonical wire encoding, hex encoded.
func HashCode(code *vm.CodeObject) (string, error) {
	data, err := wire.MarshalCode(code)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// PutCode stores a code object and returns its content hash. Storing the
// same body twice is a no-op.
func (s *Store) PutCode(code *vm.CodeObject) (string, error) {
	data, err := wire.MarshalCode(code)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	_, err = s.db.Exec(
		`INSERT OR IGNORE INTO code_objects (hash, name, data) VALUES (?, ?, ?)`,
		hash, code.Name, data,
	)
	if err != nil {
		return "", fmt.Errorf("store: put code %s: %w", code.Name, err)
	}
	return hash, nil
}

// GetCode loads a code object by content hash. Returns sql.ErrNoRows
// (wrapped) when absent.
func (s *Store) GetCode(hash string) (*vm.CodeObject, error) {
	var data []byte
	err := s.db.QueryRow(
		`SELECT data FROM code_objects WHERE hash = ?`, hash,
	).Scan(&data)
	if err != nil {
		return nil, fmt.Errorf("store: get code %s: %w", hash, err)
	}
	return wire.UnmarshalCode(data)
}

// HasCode reports whether a code object with the given hash is stored.
func (s *Store) HasCode(hash string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM code_objects WHERE hash = ?`, hash,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: has code %s: %w", hash, err)
	}
	return n > 0, nil
}

// CodeNames returns the names of all stored code objects, ordered by hash
// for determinism.
func (s *Store) CodeNames() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM code_objects ORDER BY hash`)
	if err != nil {
		return nil, fmt.Errorf("store: list codes: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ---------------------------------------------------------------------------
// Images
// ---------------------------------------------------------------------------

// PutImage stores an image under its UUID identity, replacing any previous
// image with the same ID.
func (s *Store) PutImage(img *wire.Image) error {
	data, err := wire.MarshalImage(img)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO images (id, name, data) VALUES (?, ?, ?)`,
		img.ID, img.Name, data,
	)
	if err != nil {
		return fmt.Errorf("store: put image %s: %w", img.ID, err)
	}
	return nil
}

// GetImage loads an image by its UUID identity.
func (s *Store) GetImage(id string) (*wire.Image, error) {
	var data []byte
	err := s.db.QueryRow(
		`SELECT data FROM images WHERE id = ?`, id,
	).Scan(&data)
	if err != nil {
		return nil, fmt.Errorf("store: get image %s: %w", id, err)
	}
	return wire.UnmarshalImage(data)
}
