package versions

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the wall clock used for snapshot timestamps.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

type instanceState struct {
	snapshots map[int64]Snapshot
	active    int64
	hasActive bool
}

// MemoryStore is the in-process Store used for block instances and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	instances map[string]*instanceState
	now       func() time.Time
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		instances: make(map[string]*instanceState),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) state(instance string) *instanceState {
	st, ok := s.instances[instance]
	if !ok {
		st = &instanceState{snapshots: make(map[int64]Snapshot)}
		s.instances[instance] = st
	}
	return st
}

func (s *MemoryStore) Save(_ context.Context, instance string, values map[string]any, author string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(instance)
	now := s.now()
	ts := now.Unix()
	if _, exists := st.snapshots[ts]; exists {
		return Snapshot{}, fmt.Errorf("%w: timestamp %d already used for %q", ErrInvalidOperation, ts, instance)
	}

	snap := Snapshot{
		Timestamp: ts,
		Values:    cloneValues(values),
		CreatedAt: now,
		Author:    author,
	}
	st.snapshots[ts] = snap
	st.active = ts
	st.hasActive = true
	return snap, nil
}

func (s *MemoryStore) Restore(_ context.Context, instance string, timestamp int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(instance)
	if _, ok := st.snapshots[timestamp]; !ok {
		return fmt.Errorf("%w: %q@%d", ErrNotFound, instance, timestamp)
	}
	st.active = timestamp
	st.hasActive = true
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, instance string, timestamp int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(instance)
	if _, ok := st.snapshots[timestamp]; !ok {
		return fmt.Errorf("%w: %q@%d", ErrNotFound, instance, timestamp)
	}
	if active, ok := st.effectiveActive(); ok && active == timestamp {
		return fmt.Errorf("%w: cannot delete active snapshot %d", ErrInvalidOperation, timestamp)
	}
	if len(st.snapshots) == 1 {
		return fmt.Errorf("%w: cannot delete the only snapshot", ErrInvalidOperation)
	}
	delete(st.snapshots, timestamp)
	return nil
}

func (s *MemoryStore) PruneAllButActive(_ context.Context, instance string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state(instance)
	active, ok := st.effectiveActive()
	if !ok {
		return 0, nil
	}
	removed := 0
	for ts := range st.snapshots {
		if ts != active {
			delete(st.snapshots, ts)
			removed++
		}
	}
	st.active = active
	st.hasActive = true
	return removed, nil
}

func (s *MemoryStore) ActiveValues(_ context.Context, instance string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.instances[instance]
	if !ok {
		return map[string]any{}, nil
	}
	active, ok := st.effectiveActive()
	if !ok {
		return map[string]any{}, nil
	}
	return cloneValues(st.snapshots[active].Values), nil
}

func (s *MemoryStore) List(_ context.Context, instance string) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.instances[instance]
	if !ok {
		return nil, nil
	}
	out := make([]Snapshot, 0, len(st.snapshots))
	for _, snap := range st.snapshots {
		snap.Values = cloneValues(snap.Values)
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (s *MemoryStore) Active(_ context.Context, instance string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.instances[instance]
	if !ok {
		return 0, false, nil
	}
	active, ok := st.effectiveActive()
	return active, ok, nil
}

func (s *MemoryStore) GetOption(_ context.Context, instance, key string, version int64, fallback any) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.instances[instance]
	if !ok {
		return fallback, nil
	}
	ts := version
	if ts == 0 {
		active, ok := st.effectiveActive()
		if !ok {
			return fallback, nil
		}
		ts = active
	}
	snap, ok := st.snapshots[ts]
	if !ok {
		return fallback, nil
	}
	value, ok := snap.Values[key]
	if !ok {
		return fallback, nil
	}
	return cloneValue(value), nil
}

// effectiveActive resolves the pointer, falling back to the greatest
// timestamp when the pointer is missing or references a deleted snapshot.
func (st *instanceState) effectiveActive() (int64, bool) {
	if st.hasActive {
		if _, ok := st.snapshots[st.active]; ok {
			return st.active, true
		}
	}
	var greatest int64
	found := false
	for ts := range st.snapshots {
		if !found || ts > greatest {
			greatest = ts
			found = true
		}
	}
	return greatest, found
}

// cloneValues copies a value map all the way down so snapshots never alias
// caller-held maps or slices, repeater rows included.
func cloneValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneValues(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
