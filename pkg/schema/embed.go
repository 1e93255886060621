package schema

import (
	"embed"
	"io/fs"
)

//go:embed defs
var embeddedDefs embed.FS

// EmbeddedDefinitions exposes the built-in block definitions shipped with the
// module. Callers can load them with LoadFS or replace them entirely with a
// definitions directory of their own.
func EmbeddedDefinitions() fs.FS {
	sub, err := fs.Sub(embeddedDefs, "defs")
	if err != nil {
		return nil
	}
	return sub
}
