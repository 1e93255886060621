// Package assets resolves the numeric ids stored by media, file, gallery,
// and post_object fields into display metadata.
package assets

import (
	"context"
	"errors"
)

// ErrNotFound marks an id with no backing asset. Renderers show the raw id
// with an unresolved marker instead of failing.
var ErrNotFound = errors.New("assets: not found")

// Asset is the resolved display metadata for one library entry.
type Asset struct {
	ID       int64  `json:"id"`
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// Query is a free-text search with optional filters. Kinds narrows
// post_object lookups to content kinds; Types narrows file lookups by mime
// type prefix.
type Query struct {
	Text  string
	Kinds []string
	Types []string
	Limit int
}

// Resolver is the lookup surface the asynchronous field widgets depend on.
type Resolver interface {
	Resolve(ctx context.Context, id int64) (Asset, error)
	Search(ctx context.Context, q Query) ([]Asset, error)
}
