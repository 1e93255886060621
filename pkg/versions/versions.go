// Package versions keeps immutable timestamped snapshots of settings-instance
// values with a single active pointer per instance.
package versions

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound marks restore or lookup of a timestamp that is not in the
	// snapshot set.
	ErrNotFound = errors.New("versions: snapshot not found")
	// ErrInvalidOperation marks a rejected state change: deleting the active
	// or sole snapshot, or saving onto an already-used timestamp.
	ErrInvalidOperation = errors.New("versions: invalid operation")
)

// Snapshot is one immutable saved state of a settings instance. Timestamp is
// the identity key; content never changes after creation.
type Snapshot struct {
	Timestamp int64          `json:"timestamp"`
	Values    map[string]any `json:"values"`
	CreatedAt time.Time      `json:"created_at"`
	Author    string         `json:"author"`
}

// Store is the snapshot lifecycle for settings instances. Save is the only
// operation that normally advances the active pointer; Restore moves it
// without creating anything.
type Store interface {
	// Save creates a snapshot keyed by the current wall-clock second and
	// makes it active. A second save within the same second is rejected with
	// ErrInvalidOperation; callers retry after the clock advances.
	Save(ctx context.Context, instance string, values map[string]any, author string) (Snapshot, error)

	// Restore points the instance at an existing snapshot. The snapshot set
	// is untouched.
	Restore(ctx context.Context, instance string, timestamp int64) error

	// Delete removes a non-active snapshot. Deleting the active snapshot or
	// the only remaining snapshot fails with ErrInvalidOperation.
	Delete(ctx context.Context, instance string, timestamp int64) error

	// PruneAllButActive removes every snapshot except the active one and
	// returns how many were removed.
	PruneAllButActive(ctx context.Context, instance string) (int, error)

	// ActiveValues returns the active snapshot's value map. No snapshots
	// yields an empty map; an active pointer referencing a missing snapshot
	// falls back to the greatest timestamp.
	ActiveValues(ctx context.Context, instance string) (map[string]any, error)

	// List returns the instance's snapshots ordered oldest first, values
	// included.
	List(ctx context.Context, instance string) ([]Snapshot, error)

	// Active returns the effective active timestamp, false when the instance
	// has no snapshots.
	Active(ctx context.Context, instance string) (int64, bool, error)

	// GetOption reads one key from one snapshot's value map, the active
	// snapshot when version is zero. Absent snapshot or key returns fallback.
	GetOption(ctx context.Context, instance, key string, version int64, fallback any) (any, error)
}
