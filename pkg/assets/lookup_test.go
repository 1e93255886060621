package assets

import (
	"context"
	"sync"
	"testing"
	"time"
)

// gateResolver blocks each Resolve until the test releases that id.
type gateResolver struct {
	mu    sync.Mutex
	gates map[int64]chan struct{}
}

func newGateResolver(ids ...int64) *gateResolver {
	r := &gateResolver{gates: make(map[int64]chan struct{})}
	for _, id := range ids {
		r.gates[id] = make(chan struct{})
	}
	return r
}

func (r *gateResolver) release(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	close(r.gates[id])
}

func (r *gateResolver) Resolve(_ context.Context, id int64) (Asset, error) {
	r.mu.Lock()
	gate := r.gates[id]
	r.mu.Unlock()
	<-gate
	return Asset{ID: id}, nil
}

func (r *gateResolver) Search(context.Context, Query) ([]Asset, error) {
	return nil, nil
}

func TestLookupLastRequestWins(t *testing.T) {
	resolver := newGateResolver(1, 2)
	lookup := NewLookup(resolver)

	delivered := make(chan Asset, 2)
	deliver := func(a Asset, err error) {
		if err != nil {
			t.Errorf("resolve: %v", err)
			return
		}
		delivered <- a
	}

	lookup.Fetch(context.Background(), "image", 1, deliver)
	lookup.Fetch(context.Background(), "image", 2, deliver)

	// The older request completes last; its result must be dropped.
	resolver.release(2)
	select {
	case a := <-delivered:
		if a.ID != 2 {
			t.Fatalf("delivered id = %d, want 2", a.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the newer result")
	}

	resolver.release(1)
	select {
	case a := <-delivered:
		t.Fatalf("stale result for id %d must not be delivered", a.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLookupIndependentFields(t *testing.T) {
	resolver := newGateResolver(1, 2)
	lookup := NewLookup(resolver)

	delivered := make(chan Asset, 2)
	deliver := func(a Asset, err error) {
		if err != nil {
			t.Errorf("resolve: %v", err)
			return
		}
		delivered <- a
	}

	lookup.Fetch(context.Background(), "image", 1, deliver)
	lookup.Fetch(context.Background(), "logo", 2, deliver)
	resolver.release(1)
	resolver.release(2)

	seen := make(map[int64]bool)
	for i := 0; i < 2; i++ {
		select {
		case a := <-delivered:
			seen[a.ID] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for results")
		}
	}
	if !seen[1] || !seen[2] {
		t.Fatalf("requests on distinct fields must both deliver, got %v", seen)
	}
}
