package schema

import (
	"fmt"
	"sort"
	"sync"
)

// BlockType couples a block identifier with the ordered field schemas its
// editor surfaces render.
type BlockType struct {
	Name        string  `json:"name" yaml:"name"`
	Title       string  `json:"title,omitempty" yaml:"title,omitempty"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Icon        string  `json:"icon,omitempty" yaml:"icon,omitempty"`
	Fields      []Field `json:"fields" yaml:"fields"`
}

// Validate checks the block name and delegates to ValidateFields.
func (b BlockType) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("schema: block type with empty name")
	}
	return ValidateFields("block "+b.Name, b.Fields)
}

// Registry stores block types by name. It replaces ambient global lookup
// maps: construct one at startup and pass it to every component that needs
// block resolution.
type Registry struct {
	mu     sync.RWMutex
	blocks map[string]BlockType
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		blocks: make(map[string]BlockType),
	}
}

// Register validates and adds a block type. Duplicate names return an error.
func (r *Registry) Register(block BlockType) error {
	if err := block.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.blocks[block.Name]; exists {
		return fmt.Errorf("schema: block type %q already registered", block.Name)
	}
	r.blocks[block.Name] = block
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(block BlockType) {
	if err := r.Register(block); err != nil {
		panic(err)
	}
}

// Replace validates and stores a block type, overwriting any existing entry.
// Used by the definitions watcher on reload.
func (r *Registry) Replace(block BlockType) error {
	if err := block.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks[block.Name] = block
	return nil
}

// Get retrieves a block type by name.
func (r *Registry) Get(name string) (BlockType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	block, ok := r.blocks[name]
	if !ok {
		return BlockType{}, fmt.Errorf("schema: block type %q not found", name)
	}
	return block, nil
}

// Has reports whether a block type is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.blocks[name]
	return ok
}

// List returns a sorted list of registered block type names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.blocks))
	for name := range r.blocks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns registered block types sorted by name.
func (r *Registry) All() []BlockType {
	names := r.List()

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]BlockType, 0, len(names))
	for _, name := range names {
		out = append(out, r.blocks[name])
	}
	return out
}
