// Package autosave debounces field edits into coalesced commits and tracks
// the save indicator lifecycle.
package autosave

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Status is the save indicator state for one coordinated instance.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusSaved   Status = "saved"
)

const (
	defaultDebounce  = 500 * time.Millisecond
	defaultSavedHold = 2 * time.Second
)

// ReadFunc produces a field's current value at flush time.
type ReadFunc func() (any, error)

// CommitFunc persists one coalesced batch of field values. flushedAt is the
// moment the batch was read, stamped so backends can order writes.
type CommitFunc func(ctx context.Context, values map[string]any, flushedAt time.Time) error

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDebounce overrides the quiet window before a flush.
func WithDebounce(d time.Duration) Option {
	return func(c *Coordinator) { c.debounce = d }
}

// WithSavedHold overrides how long the saved indicator stays lit before
// returning to idle.
func WithSavedHold(d time.Duration) Option {
	return func(c *Coordinator) { c.savedHold = d }
}

// WithStatusFunc registers a callback for indicator transitions.
func WithStatusFunc(fn func(Status)) Option {
	return func(c *Coordinator) { c.onStatus = fn }
}

// WithErrorFunc registers a callback for per-field read failures and commit
// failures. fieldID is empty for commit failures.
func WithErrorFunc(fn func(fieldID string, err error)) Option {
	return func(c *Coordinator) { c.onError = fn }
}

// Coordinator coalesces edits across all fields of one instance into a single
// commit per quiet window. Values are read at flush time, so only the final
// state of a rapid edit burst is ever persisted.
type Coordinator struct {
	mu        sync.Mutex
	commit    CommitFunc
	readers   map[string]ReadFunc
	dirty     map[string]struct{}
	debounce  time.Duration
	savedHold time.Duration
	timer     *time.Timer
	holdTimer *time.Timer
	status    Status
	onStatus  func(Status)
	onError   func(fieldID string, err error)
	closed    bool
}

// New builds a coordinator that persists batches through commit.
func New(commit CommitFunc, opts ...Option) *Coordinator {
	c := &Coordinator{
		commit:    commit,
		readers:   make(map[string]ReadFunc),
		dirty:     make(map[string]struct{}),
		debounce:  defaultDebounce,
		savedHold: defaultSavedHold,
		status:    StatusIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Observe registers the reader used to pull a field's value at flush time.
func (c *Coordinator) Observe(fieldID string, read ReadFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readers[fieldID] = read
}

// Touch marks a field dirty and restarts the quiet window. Any number of
// touches inside one window collapse into a single commit.
func (c *Coordinator) Touch(fieldID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("autosave: coordinator closed")
	}
	if _, ok := c.readers[fieldID]; !ok {
		return fmt.Errorf("autosave: field %q is not observed", fieldID)
	}

	c.dirty[fieldID] = struct{}{}
	c.setStatusLocked(StatusPending)
	if c.holdTimer != nil {
		c.holdTimer.Stop()
		c.holdTimer = nil
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		c.flush(context.Background())
	})
	return nil
}

// Flush commits any pending dirty fields immediately, bypassing the quiet
// window. A no-op when nothing is dirty.
func (c *Coordinator) Flush(ctx context.Context) {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	c.flush(ctx)
}

// Status returns the current indicator state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Close stops the timers. Dirty fields that have not flushed are dropped;
// call Flush first to persist them.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.holdTimer != nil {
		c.holdTimer.Stop()
		c.holdTimer = nil
	}
}

func (c *Coordinator) flush(ctx context.Context) {
	c.mu.Lock()
	if c.closed || len(c.dirty) == 0 {
		c.mu.Unlock()
		return
	}

	batch := make(map[string]ReadFunc, len(c.dirty))
	for id := range c.dirty {
		batch[id] = c.readers[id]
	}
	c.dirty = make(map[string]struct{})
	c.mu.Unlock()

	values := make(map[string]any, len(batch))
	for id, read := range batch {
		value, err := read()
		if err != nil {
			c.reportError(id, err)
			continue
		}
		values[id] = value
	}
	if len(values) == 0 {
		return
	}
	flushedAt := time.Now()

	if err := c.commit(ctx, values, flushedAt); err != nil {
		c.reportError("", err)
		c.mu.Lock()
		for id := range batch {
			c.dirty[id] = struct{}{}
		}
		if !c.closed {
			if c.timer != nil {
				c.timer.Stop()
			}
			c.timer = time.AfterFunc(c.debounce, func() {
				c.flush(context.Background())
			})
		}
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.dirty) > 0 {
		// New edits arrived while committing; stay pending.
		return
	}
	c.setStatusLocked(StatusSaved)
	if c.holdTimer != nil {
		c.holdTimer.Stop()
	}
	c.holdTimer = time.AfterFunc(c.savedHold, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.status == StatusSaved {
			c.setStatusLocked(StatusIdle)
		}
	})
}

func (c *Coordinator) setStatusLocked(status Status) {
	if c.status == status {
		return
	}
	c.status = status
	if c.onStatus != nil {
		go c.onStatus(status)
	}
}

func (c *Coordinator) reportError(fieldID string, err error) {
	if c.onError != nil {
		c.onError(fieldID, err)
	}
}
