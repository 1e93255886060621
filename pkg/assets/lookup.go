package assets

import (
	"context"
	"sync"
)

// Lookup runs asynchronous metadata fetches with last-request-wins delivery
// per field: when a newer fetch for the same field has started, an older
// fetch's result is dropped instead of delivered.
type Lookup struct {
	resolver Resolver

	mu  sync.Mutex
	gen map[string]uint64
}

// NewLookup wraps a resolver with per-field request sequencing.
func NewLookup(resolver Resolver) *Lookup {
	return &Lookup{
		resolver: resolver,
		gen:      make(map[string]uint64),
	}
}

// Fetch resolves id in the background and calls deliver with the result,
// unless a newer Fetch for the same field started in the meantime.
func (l *Lookup) Fetch(ctx context.Context, fieldID string, id int64, deliver func(Asset, error)) {
	l.mu.Lock()
	l.gen[fieldID]++
	token := l.gen[fieldID]
	l.mu.Unlock()

	go func() {
		asset, err := l.resolver.Resolve(ctx, id)

		l.mu.Lock()
		stale := l.gen[fieldID] != token
		l.mu.Unlock()
		if stale {
			return
		}
		deliver(asset, err)
	}()
}
