package preview

import (
	"fmt"
	"sync"
)

// Mode is the per-block UI mode within the editor.
type Mode string

const (
	ModeEdit    Mode = "edit"
	ModePreview Mode = "preview"
)

// ModeStore tracks the edit/preview mode per (document, block position)
// pair so the choice survives reloads of the same document without leaking
// across documents or positions. Mode never touches the value map.
type ModeStore struct {
	mu    sync.RWMutex
	modes map[string]Mode
}

// NewModeStore builds an empty mode store.
func NewModeStore() *ModeStore {
	return &ModeStore{modes: make(map[string]Mode)}
}

func modeKey(documentID string, blockIndex int) string {
	return fmt.Sprintf("%s_%d", documentID, blockIndex)
}

// Get returns the stored mode, defaulting to edit.
func (s *ModeStore) Get(documentID string, blockIndex int) Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if mode, ok := s.modes[modeKey(documentID, blockIndex)]; ok {
		return mode
	}
	return ModeEdit
}

// Set stores the mode for one block position.
func (s *ModeStore) Set(documentID string, blockIndex int, mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes[modeKey(documentID, blockIndex)] = mode
}

// Toggle flips the mode for one block position and returns the new mode.
func (s *ModeStore) Toggle(documentID string, blockIndex int) Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := modeKey(documentID, blockIndex)
	next := ModePreview
	if s.modes[key] == ModePreview {
		next = ModeEdit
	}
	s.modes[key] = next
	return next
}
