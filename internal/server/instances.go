package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/webtero/blockkit/pkg/store"
)

const instancesSchema = `
CREATE TABLE IF NOT EXISTS instances (
	name     TEXT PRIMARY KEY,
	encoding TEXT NOT NULL,
	attrs    TEXT NOT NULL
);`

// InstanceStore persists block-instance attribute maps. Each instance keeps
// the encoding it was created with; reads return whichever encoding is
// stored so legacy blob instances stay readable.
type InstanceStore struct {
	db *sql.DB
}

// OpenInstanceStore opens (creating if needed) the instance database at
// path.
func OpenInstanceStore(path string) (*InstanceStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("server: open %s: %w", path, err)
	}
	if _, err := db.Exec(instancesSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("server: create instances table: %w", err)
	}
	return &InstanceStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *InstanceStore) Close() error {
	return s.db.Close()
}

// Load returns the stored encoding and attribute map for an instance. A
// never-saved instance starts empty on the preferred per-field encoding.
func (s *InstanceStore) Load(ctx context.Context, name string) (store.Encoding, map[string]string, error) {
	var (
		encoding string
		raw      string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT encoding, attrs FROM instances WHERE name = ?`, name).
		Scan(&encoding, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return store.EncodingPerField, map[string]string{}, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("server: load instance %q: %w", name, err)
	}

	attrs := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return "", nil, fmt.Errorf("server: decode instance %q: %w", name, err)
	}
	return store.Encoding(encoding), attrs, nil
}

// Save writes an instance's attribute map, keeping its encoding.
func (s *InstanceStore) Save(ctx context.Context, name string, encoding store.Encoding, attrs map[string]string) error {
	raw, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("server: encode instance %q: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO instances (name, encoding, attrs) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET encoding = excluded.encoding, attrs = excluded.attrs`,
		name, string(encoding), string(raw))
	if err != nil {
		return fmt.Errorf("server: save instance %q: %w", name, err)
	}
	return nil
}
