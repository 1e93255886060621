package autosave

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type commitRecorder struct {
	mu      sync.Mutex
	batches []map[string]any
	stamps  []time.Time
	done    chan struct{}
	fail    atomic.Bool
}

func newCommitRecorder() *commitRecorder {
	return &commitRecorder{done: make(chan struct{}, 16)}
}

func (r *commitRecorder) commit(_ context.Context, values map[string]any, flushedAt time.Time) error {
	if r.fail.Load() {
		return errors.New("backend unavailable")
	}
	r.mu.Lock()
	r.batches = append(r.batches, values)
	r.stamps = append(r.stamps, flushedAt)
	r.mu.Unlock()
	r.done <- struct{}{}
	return nil
}

func (r *commitRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for commit")
	}
}

func (r *commitRecorder) all() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]map[string]any, len(r.batches))
	copy(out, r.batches)
	return out
}

func TestBurstOfEditsCoalescesIntoOneCommit(t *testing.T) {
	rec := newCommitRecorder()
	c := New(rec.commit, WithDebounce(30*time.Millisecond))
	defer c.Close()

	var heading atomic.Value
	c.Observe("heading", func() (any, error) { return heading.Load(), nil })

	for i := 0; i < 10; i++ {
		heading.Store(string(rune('a' + i)))
		if err := c.Touch("heading"); err != nil {
			t.Fatalf("touch: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	rec.wait(t)

	batches := rec.all()
	if len(batches) != 1 {
		t.Fatalf("expected one coalesced commit, got %d", len(batches))
	}
	want := map[string]any{"heading": "j"}
	if diff := cmp.Diff(want, batches[0]); diff != "" {
		t.Fatalf("commit mismatch (-want +got):\n%s", diff)
	}
}

func TestCommitCarriesFlushTimestamp(t *testing.T) {
	rec := newCommitRecorder()
	c := New(rec.commit, WithDebounce(15*time.Millisecond))
	defer c.Close()

	c.Observe("heading", func() (any, error) { return "x", nil })
	before := time.Now()
	if err := c.Touch("heading"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	rec.wait(t)

	rec.mu.Lock()
	stamp := rec.stamps[0]
	rec.mu.Unlock()
	if stamp.Before(before) || stamp.After(time.Now()) {
		t.Fatalf("flush timestamp %v outside the flush window", stamp)
	}
}

func TestTouchOnUnobservedField(t *testing.T) {
	c := New(newCommitRecorder().commit)
	defer c.Close()
	if err := c.Touch("ghost"); err == nil {
		t.Fatal("expected error for unobserved field")
	}
}

func TestMultipleDirtyFieldsShareOneCommit(t *testing.T) {
	rec := newCommitRecorder()
	c := New(rec.commit, WithDebounce(20*time.Millisecond))
	defer c.Close()

	c.Observe("heading", func() (any, error) { return "Welcome", nil })
	c.Observe("visible", func() (any, error) { return true, nil })

	if err := c.Touch("heading"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if err := c.Touch("visible"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	rec.wait(t)

	batches := rec.all()
	if len(batches) != 1 {
		t.Fatalf("expected one commit, got %d", len(batches))
	}
	want := map[string]any{"heading": "Welcome", "visible": true}
	if diff := cmp.Diff(want, batches[0]); diff != "" {
		t.Fatalf("commit mismatch (-want +got):\n%s", diff)
	}
}

func TestReaderFailureSkipsField(t *testing.T) {
	rec := newCommitRecorder()
	var failed atomic.Value
	c := New(rec.commit,
		WithDebounce(20*time.Millisecond),
		WithErrorFunc(func(fieldID string, err error) { failed.Store(fieldID) }),
	)
	defer c.Close()

	c.Observe("good", func() (any, error) { return "ok", nil })
	c.Observe("bad", func() (any, error) { return nil, errors.New("read failed") })

	if err := c.Touch("good"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if err := c.Touch("bad"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	rec.wait(t)

	batches := rec.all()
	if len(batches) != 1 {
		t.Fatalf("expected one commit, got %d", len(batches))
	}
	if diff := cmp.Diff(map[string]any{"good": "ok"}, batches[0]); diff != "" {
		t.Fatalf("commit mismatch (-want +got):\n%s", diff)
	}
	if got, _ := failed.Load().(string); got != "bad" {
		t.Fatalf("expected read failure reported for %q, got %q", "bad", got)
	}
}

func TestStatusLifecycle(t *testing.T) {
	rec := newCommitRecorder()
	c := New(rec.commit,
		WithDebounce(20*time.Millisecond),
		WithSavedHold(40*time.Millisecond),
	)
	defer c.Close()

	c.Observe("heading", func() (any, error) { return "x", nil })

	if got := c.Status(); got != StatusIdle {
		t.Fatalf("initial status = %s", got)
	}
	if err := c.Touch("heading"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if got := c.Status(); got != StatusPending {
		t.Fatalf("status after touch = %s", got)
	}

	rec.wait(t)
	deadline := time.Now().Add(time.Second)
	for c.Status() != StatusSaved {
		if time.Now().After(deadline) {
			t.Fatalf("status never reached saved, at %s", c.Status())
		}
		time.Sleep(time.Millisecond)
	}
	for c.Status() != StatusIdle {
		if time.Now().After(deadline) {
			t.Fatalf("saved indicator never cleared, at %s", c.Status())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCommitFailureRetries(t *testing.T) {
	rec := newCommitRecorder()
	rec.fail.Store(true)
	c := New(rec.commit, WithDebounce(15*time.Millisecond))
	defer c.Close()

	c.Observe("heading", func() (any, error) { return "x", nil })
	if err := c.Touch("heading"); err != nil {
		t.Fatalf("touch: %v", err)
	}

	time.Sleep(40 * time.Millisecond)
	if got := c.Status(); got != StatusPending {
		t.Fatalf("status after failed commit = %s", got)
	}

	rec.fail.Store(false)
	rec.wait(t)
	if len(rec.all()) != 1 {
		t.Fatalf("expected the retried commit to land once, got %d", len(rec.all()))
	}
}

func TestFlushCommitsImmediately(t *testing.T) {
	rec := newCommitRecorder()
	c := New(rec.commit, WithDebounce(time.Hour))
	defer c.Close()

	c.Observe("heading", func() (any, error) { return "x", nil })
	if err := c.Touch("heading"); err != nil {
		t.Fatalf("touch: %v", err)
	}

	c.Flush(context.Background())
	rec.wait(t)
	if len(rec.all()) != 1 {
		t.Fatalf("expected one commit, got %d", len(rec.all()))
	}

	// Nothing dirty; a second flush is a no-op.
	c.Flush(context.Background())
	select {
	case <-rec.done:
		t.Fatal("flush with no dirty fields must not commit")
	case <-time.After(30 * time.Millisecond):
	}
}
