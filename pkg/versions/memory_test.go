package versions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSaveAdvancesActivePointer(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := NewMemoryStore(WithClock(clock.Now))

	first, err := s.Save(ctx, "site", map[string]any{"heading": "one"}, "alice")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	clock.Advance(time.Second)
	second, err := s.Save(ctx, "site", map[string]any{"heading": "two"}, "alice")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if second.Timestamp <= first.Timestamp {
		t.Fatalf("timestamps not monotonic: %d then %d", first.Timestamp, second.Timestamp)
	}

	active, ok, err := s.Active(ctx, "site")
	if err != nil || !ok {
		t.Fatalf("active: %v ok=%v", err, ok)
	}
	if active != second.Timestamp {
		t.Fatalf("active = %d, want %d", active, second.Timestamp)
	}

	values, err := s.ActiveValues(ctx, "site")
	if err != nil {
		t.Fatalf("active values: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"heading": "two"}, values); diff != "" {
		t.Fatalf("active values mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveRejectsSameSecond(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := NewMemoryStore(WithClock(clock.Now))

	if _, err := s.Save(ctx, "site", map[string]any{}, "alice"); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, err := s.Save(ctx, "site", map[string]any{}, "alice")
	if !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation for same-second save, got %v", err)
	}
}

func TestRestoreMovesPointerOnly(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := NewMemoryStore(WithClock(clock.Now))

	first, _ := s.Save(ctx, "site", map[string]any{"heading": "one"}, "alice")
	clock.Advance(time.Second)
	s.Save(ctx, "site", map[string]any{"heading": "two"}, "bob")

	before, _ := s.List(ctx, "site")
	if err := s.Restore(ctx, "site", first.Timestamp); err != nil {
		t.Fatalf("restore: %v", err)
	}
	after, _ := s.List(ctx, "site")
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("restore must not touch the snapshot set (-want +got):\n%s", diff)
	}

	values, _ := s.ActiveValues(ctx, "site")
	if values["heading"] != "one" {
		t.Fatalf("active after restore = %v", values["heading"])
	}

	if err := s.Restore(ctx, "site", 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteGuards(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := NewMemoryStore(WithClock(clock.Now))

	first, _ := s.Save(ctx, "site", map[string]any{"n": 1.0}, "alice")

	if err := s.Delete(ctx, "site", first.Timestamp); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("deleting the sole snapshot must fail, got %v", err)
	}

	clock.Advance(time.Second)
	second, _ := s.Save(ctx, "site", map[string]any{"n": 2.0}, "alice")

	if err := s.Delete(ctx, "site", second.Timestamp); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("deleting the active snapshot must fail, got %v", err)
	}
	if err := s.Delete(ctx, "site", first.Timestamp); err != nil {
		t.Fatalf("deleting a non-active snapshot: %v", err)
	}
	if err := s.Delete(ctx, "site", first.Timestamp); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for repeated delete, got %v", err)
	}
}

func TestPruneAllButActive(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := NewMemoryStore(WithClock(clock.Now))

	for i := 0; i < 4; i++ {
		if _, err := s.Save(ctx, "site", map[string]any{"n": float64(i)}, "alice"); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		clock.Advance(time.Second)
	}

	list, _ := s.List(ctx, "site")
	keep := list[1].Timestamp
	if err := s.Restore(ctx, "site", keep); err != nil {
		t.Fatalf("restore: %v", err)
	}

	removed, err := s.PruneAllButActive(ctx, "site")
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}

	list, _ = s.List(ctx, "site")
	if len(list) != 1 || list[0].Timestamp != keep {
		t.Fatalf("unexpected survivors: %#v", list)
	}
	values, _ := s.ActiveValues(ctx, "site")
	if values["n"] != 1.0 {
		t.Fatalf("active values after prune = %v", values)
	}
}

func TestActiveValuesFallbacks(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	values, err := s.ActiveValues(ctx, "empty")
	if err != nil {
		t.Fatalf("active values: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected empty map, got %#v", values)
	}

	// Stale pointer falls back to the greatest timestamp.
	clock := newFakeClock()
	s = NewMemoryStore(WithClock(clock.Now))
	s.Save(ctx, "site", map[string]any{"n": 1.0}, "alice")
	clock.Advance(time.Second)
	s.Save(ctx, "site", map[string]any{"n": 2.0}, "alice")
	s.instances["site"].active = 12345

	values, _ = s.ActiveValues(ctx, "site")
	if values["n"] != 2.0 {
		t.Fatalf("stale pointer must fall back to greatest timestamp, got %v", values)
	}
}

func TestGetOption(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := NewMemoryStore(WithClock(clock.Now))

	first, _ := s.Save(ctx, "site", map[string]any{"heading": "one"}, "alice")
	clock.Advance(time.Second)
	s.Save(ctx, "site", map[string]any{"heading": "two"}, "alice")

	got, err := s.GetOption(ctx, "site", "heading", 0, "fallback")
	if err != nil || got != "two" {
		t.Fatalf("active lookup = %v, %v", got, err)
	}
	got, _ = s.GetOption(ctx, "site", "heading", first.Timestamp, "fallback")
	if got != "one" {
		t.Fatalf("versioned lookup = %v", got)
	}
	got, _ = s.GetOption(ctx, "site", "missing", 0, "fallback")
	if got != "fallback" {
		t.Fatalf("missing key = %v", got)
	}
	got, _ = s.GetOption(ctx, "nowhere", "heading", 0, "fallback")
	if got != "fallback" {
		t.Fatalf("missing instance = %v", got)
	}
}

func TestSnapshotsAreIsolatedFromCallerMutation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	row := map[string]any{"question": "original"}
	values := map[string]any{
		"heading": "original",
		"items":   []any{row},
	}
	if _, err := s.Save(ctx, "site", values, "alice"); err != nil {
		t.Fatalf("save: %v", err)
	}
	values["heading"] = "mutated"
	row["question"] = "mutated after save"

	got, _ := s.ActiveValues(ctx, "site")
	if got["heading"] != "original" {
		t.Fatalf("snapshot must be immutable, got %v", got["heading"])
	}
	items := got["items"].([]any)
	if q := items[0].(map[string]any)["question"]; q != "original" {
		t.Fatalf("snapshot must be immutable, nested value = %v", q)
	}

	// Mutating what reads hand back must not leak into the snapshot either.
	items[0].(map[string]any)["question"] = "mutated after read"
	again, _ := s.ActiveValues(ctx, "site")
	if q := again["items"].([]any)[0].(map[string]any)["question"]; q != "original" {
		t.Fatalf("read must return an isolated copy, nested value = %v", q)
	}
}
