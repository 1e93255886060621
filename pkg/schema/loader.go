package schema

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFS walks the provided filesystem and parses every YAML block definition
// into the registry. File names are informational only; each document carries
// its own block name. When fsys is nil the registry is returned unchanged.
func LoadFS(fsys fs.FS, registry *Registry) error {
	if fsys == nil {
		return nil
	}
	if registry == nil {
		return fmt.Errorf("schema: registry is required")
	}

	return fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", path, err)
		}

		block, err := ParseDefinition(data)
		if err != nil {
			return fmt.Errorf("schema: parse %s: %w", path, err)
		}
		if err := registry.Replace(block); err != nil {
			return fmt.Errorf("schema: load %s: %w", path, err)
		}
		return nil
	})
}

// ParseDefinition decodes one YAML block definition and normalises defaults
// decoded as YAML maps into plain map[string]any values.
func ParseDefinition(data []byte) (BlockType, error) {
	var block BlockType
	if err := yaml.Unmarshal(data, &block); err != nil {
		return BlockType{}, err
	}
	block.Fields = normaliseFields(block.Fields)
	if err := block.Validate(); err != nil {
		return BlockType{}, err
	}
	return block, nil
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// normaliseFields rewrites YAML-decoded defaults (map[string]any appears as-is
// with yaml.v3, but nested lists may carry map[any]any from older documents)
// into JSON-compatible shapes so values round-trip through the stores.
func normaliseFields(fields []Field) []Field {
	out := make([]Field, len(fields))
	for i, field := range fields {
		field.Default = normaliseValue(field.Default)
		if len(field.Fields) > 0 {
			field.Fields = normaliseFields(field.Fields)
		}
		out[i] = field
	}
	return out
}

func normaliseValue(v any) any {
	switch val := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[fmt.Sprint(k)] = normaliseValue(item)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = normaliseValue(item)
		}
		return m
	case []any:
		list := make([]any, len(val))
		for i, item := range val {
			list[i] = normaliseValue(item)
		}
		return list
	case int:
		return float64(val)
	default:
		return v
	}
}
