// Package store holds the working field values for one block instance and
// bridges them to the host document's attribute map in either of the two
// supported encodings.
package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/webtero/blockkit/pkg/schema"
)

// Encoding selects how values cross the attribute bridge.
type Encoding string

const (
	// EncodingPerField writes one attribute per field id, each value JSON
	// encoded on its own.
	EncodingPerField Encoding = "per_field"
	// EncodingBlob writes the whole value map as a single JSON object under
	// BlobKey.
	EncodingBlob Encoding = "blob"
)

// BlobKey is the attribute name carrying the blob encoding.
const BlobKey = "options"

// Store is the value store for one block instance. Reads fall back to the
// schema default for fields that have never been set; writes merge, never
// replace, the map as a whole.
type Store struct {
	mu     sync.RWMutex
	fields map[string]schema.Field
	order  []string
	values map[string]any

	rawBlob string
	corrupt bool
}

// New builds an empty store over the block's field schemas.
func New(fields []schema.Field) *Store {
	s := &Store{
		fields: make(map[string]schema.Field, len(fields)),
		order:  make([]string, 0, len(fields)),
		values: make(map[string]any),
	}
	for _, field := range fields {
		s.fields[field.ID] = field
		s.order = append(s.order, field.ID)
	}
	return s
}

// Get returns the stored value for a field, or its schema default when the
// field has never been written. Unknown ids return nil.
func (s *Store) Get(fieldID string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if value, ok := s.values[fieldID]; ok {
		return value
	}
	field, ok := s.fields[fieldID]
	if !ok {
		return nil
	}
	return field.DefaultValue()
}

// Has reports whether the field has an explicit stored value, as opposed to
// falling back to its default.
func (s *Store) Has(fieldID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[fieldID]
	return ok
}

// Set writes one field value. The rest of the map is untouched.
func (s *Store) Set(fieldID string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.fields[fieldID]; !ok {
		return fmt.Errorf("store: unknown field %q", fieldID)
	}
	s.values[fieldID] = value
	return nil
}

// SetAll merges a batch of field values in one atomic step. Either every key
// is applied or, when any key is unknown, none are.
func (s *Store) SetAll(values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range values {
		if _, ok := s.fields[id]; !ok {
			return fmt.Errorf("store: unknown field %q", id)
		}
	}
	for id, value := range values {
		s.values[id] = value
	}
	return nil
}

// Values returns a copy of the explicitly stored values. Fields still on
// their defaults are absent.
func (s *Store) Values() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.values))
	for id, value := range s.values {
		out[id] = value
	}
	return out
}

// Resolved returns every field's effective value, stored or default, keyed by
// field id.
func (s *Store) Resolved() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.order))
	for _, id := range s.order {
		if value, ok := s.values[id]; ok {
			out[id] = value
			continue
		}
		out[id] = s.fields[id].DefaultValue()
	}
	return out
}

// Corrupt reports whether the last blob decode failed. RawBlob then still
// carries the original payload so nothing is lost on the next save.
func (s *Store) Corrupt() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corrupt
}

// RawBlob returns the retained payload of a failed blob decode.
func (s *Store) RawBlob() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rawBlob
}

// Serialize projects the stored values into host attributes using the given
// encoding. Defaults are not written; absence means "use the default".
func (s *Store) Serialize(encoding Encoding) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch encoding {
	case EncodingPerField:
		attrs := make(map[string]string, len(s.values))
		for id, value := range s.values {
			data, err := json.Marshal(value)
			if err != nil {
				return nil, fmt.Errorf("store: encode field %q: %w", id, err)
			}
			attrs[id] = string(data)
		}
		return attrs, nil

	case EncodingBlob:
		data, err := json.Marshal(s.values)
		if err != nil {
			return nil, fmt.Errorf("store: encode blob: %w", err)
		}
		return map[string]string{BlobKey: string(data)}, nil

	default:
		return nil, fmt.Errorf("store: unknown encoding %q", encoding)
	}
}

// Deserialize loads host attributes into the store, replacing prior values.
// A malformed blob yields an empty value map with the raw payload retained;
// per-field attributes that fail to decode are skipped individually.
func (s *Store) Deserialize(encoding Encoding, attrs map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = make(map[string]any)
	s.rawBlob = ""
	s.corrupt = false

	switch encoding {
	case EncodingPerField:
		for id, raw := range attrs {
			if _, ok := s.fields[id]; !ok {
				continue
			}
			var value any
			if err := json.Unmarshal([]byte(raw), &value); err != nil {
				continue
			}
			s.values[id] = value
		}
		return nil

	case EncodingBlob:
		raw, ok := attrs[BlobKey]
		if !ok || raw == "" {
			return nil
		}
		var decoded map[string]any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			s.rawBlob = raw
			s.corrupt = true
			return nil
		}
		for id, value := range decoded {
			if _, ok := s.fields[id]; ok {
				s.values[id] = value
			}
		}
		return nil

	default:
		return fmt.Errorf("store: unknown encoding %q", encoding)
	}
}
