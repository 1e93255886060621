package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const librarySchema = `
CREATE TABLE IF NOT EXISTS assets (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	kind      TEXT NOT NULL,
	title     TEXT NOT NULL,
	filename  TEXT NOT NULL DEFAULT '',
	url       TEXT NOT NULL DEFAULT '',
	mime_type TEXT NOT NULL DEFAULT ''
);`

// Library is the SQLite-backed asset registry.
type Library struct {
	db *sql.DB
}

// OpenLibrary opens (creating if needed) the asset database at path.
func OpenLibrary(path string) (*Library, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("assets: open %s: %w", path, err)
	}
	if _, err := db.Exec(librarySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("assets: create assets table: %w", err)
	}
	return &Library{db: db}, nil
}

// Close releases the underlying database handle.
func (l *Library) Close() error {
	return l.db.Close()
}

// Put inserts an asset and returns its assigned id.
func (l *Library) Put(ctx context.Context, a Asset) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO assets (kind, title, filename, url, mime_type) VALUES (?, ?, ?, ?, ?)`,
		a.Kind, a.Title, a.Filename, a.URL, a.MimeType)
	if err != nil {
		return 0, fmt.Errorf("assets: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("assets: insert id: %w", err)
	}
	return id, nil
}

// Resolve looks up one asset by id.
func (l *Library) Resolve(ctx context.Context, id int64) (Asset, error) {
	var a Asset
	err := l.db.QueryRowContext(ctx,
		`SELECT id, kind, title, filename, url, mime_type FROM assets WHERE id = ?`, id).
		Scan(&a.ID, &a.Kind, &a.Title, &a.Filename, &a.URL, &a.MimeType)
	if errors.Is(err, sql.ErrNoRows) {
		return Asset{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return Asset{}, fmt.Errorf("assets: resolve %d: %w", id, err)
	}
	return a, nil
}

// Search runs a free-text title match with the query's filters applied,
// ordered by id for stable paging.
func (l *Library) Search(ctx context.Context, q Query) ([]Asset, error) {
	var (
		where []string
		args  []any
	)
	if q.Text != "" {
		where = append(where, "title LIKE ?")
		args = append(args, "%"+q.Text+"%")
	}
	if len(q.Kinds) > 0 {
		where = append(where, "kind IN (?"+strings.Repeat(", ?", len(q.Kinds)-1)+")")
		for _, kind := range q.Kinds {
			args = append(args, kind)
		}
	}
	if len(q.Types) > 0 {
		clauses := make([]string, len(q.Types))
		for i, mime := range q.Types {
			clauses[i] = "mime_type LIKE ?"
			args = append(args, mime+"%")
		}
		where = append(where, "("+strings.Join(clauses, " OR ")+")")
	}

	query := `SELECT id, kind, title, filename, url, mime_type FROM assets`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("assets: search: %w", err)
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.Kind, &a.Title, &a.Filename, &a.URL, &a.MimeType); err != nil {
			return nil, fmt.Errorf("assets: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("assets: search rows: %w", err)
	}
	return out, nil
}
