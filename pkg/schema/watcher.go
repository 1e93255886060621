package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads block definitions when files under a directory change.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	registry *Registry
	onReload func(name string, err error)
	done     chan struct{}
}

// NewWatcher starts watching dir for definition changes. onReload is invoked
// after each attempted reload with the block file path and the reload outcome;
// it may be nil.
func NewWatcher(dir string, registry *Registry, onReload func(name string, err error)) (*Watcher, error) {
	if registry == nil {
		return nil, fmt.Errorf("schema: registry is required")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("schema: create watcher: %w", err)
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("schema: watch %s: %w", dir, err)
	}

	w := &Watcher{
		watcher:  fsWatcher,
		dir:      dir,
		registry: registry,
		onReload: onReload,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close stops the watcher loop and releases the fsnotify handle.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isDefinitionFile(event.Name) || isHidden(event.Name) {
				continue
			}
			w.reload(event.Name)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) reload(path string) {
	data, err := os.ReadFile(path)
	if err == nil {
		var block BlockType
		block, err = ParseDefinition(data)
		if err == nil {
			err = w.registry.Replace(block)
		}
	}
	if w.onReload != nil {
		w.onReload(path, err)
	}
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
