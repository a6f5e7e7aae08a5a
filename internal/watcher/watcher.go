// Package watcher observes a working directory tree for changes.
//
// An Observer watches every directory under its root recursively, except
// the version control metadata subtree, and calls a callback for every
// qualifying event. The event itself is discarded: callers only learn that
// something changed, which is all the debounced autopush needs.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// DefaultIgnore is the metadata directory excluded from watching.
const DefaultIgnore = ".git"

// relevantOps are the fsnotify operations that count as a change.
const relevantOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename | fsnotify.Chmod

// Observer watches a directory tree and reports changes.
type Observer struct {
	root     string
	ignore   string
	onChange func()
	logger   *log.Logger

	mu      sync.Mutex
	running bool
	watcher *fsnotify.Watcher
	watched map[string]bool

	ready     chan struct{}
	readyOnce sync.Once

	changes atomic.Uint64
}

// Option configures an Observer.
type Option func(*Observer)

// WithIgnore sets the name of the metadata directory to exclude.
func WithIgnore(name string) Option {
	return func(o *Observer) {
		if name != "" {
			o.ignore = name
		}
	}
}

// WithLogger sets the observer logger.
func WithLogger(l *log.Logger) Option {
	return func(o *Observer) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an Observer for root. onChange is called from the observer
// goroutine for every qualifying event and must not block for long.
func New(root string, onChange func(), opts ...Option) (*Observer, error) {
	if onChange == nil {
		return nil, fmt.Errorf("onChange cannot be nil")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	o := &Observer{
		root:     abs,
		ignore:   DefaultIgnore,
		onChange: onChange,
		logger:   log.New(os.Stderr, "[watch] ", log.LstdFlags),
		watched:  make(map[string]bool),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Ready is closed once the initial watches are in place.
func (o *Observer) Ready() <-chan struct{} {
	return o.ready
}

// Changes returns how many qualifying events have been reported.
func (o *Observer) Changes() uint64 {
	return o.changes.Load()
}

// Watched returns the number of directories currently watched.
func (o *Observer) Watched() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.watched)
}

// Run watches the tree until ctx is cancelled.
// It returns an error only if the watch cannot be set up.
func (o *Observer) Run(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return fmt.Errorf("observer already running")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		o.mu.Unlock()
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	o.watcher = w
	o.running = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.watched = make(map[string]bool)
		o.mu.Unlock()
		w.Close()
	}()

	if err := o.addTree(o.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", o.root, err)
	}
	o.readyOnce.Do(func() { close(o.ready) })

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			o.handle(event)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Events were lost; assume something changed.
				o.notify()
				continue
			}
			o.logger.Printf("Watcher error on %s: %v", o.root, err)
		}
	}
}

// handle filters one event and reports it.
func (o *Observer) handle(event fsnotify.Event) {
	if event.Op&relevantOps == 0 {
		return
	}
	if o.excluded(event.Name) {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			// Files created before the watch was added are found by the walk.
			if err := o.addTree(event.Name); err != nil {
				o.logger.Printf("Warning: failed to watch new directory %s: %v", event.Name, err)
			}
		}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		o.forget(event.Name)
	}

	o.notify()
}

func (o *Observer) notify() {
	o.changes.Add(1)
	o.onChange()
}

// excluded reports whether path lies in the metadata subtree (or outside root).
func (o *Observer) excluded(path string) bool {
	rel, err := filepath.Rel(o.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == o.ignore {
			return true
		}
	}
	return false
}

// addTree watches dir and every directory below it, skipping the metadata subtree.
func (o *Observer) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			// Vanished or unreadable subdirectory; keep going.
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if path != o.root && o.excluded(path) {
			return filepath.SkipDir
		}
		return o.add(path)
	})
}

func (o *Observer) add(path string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.watched[path] {
		return nil
	}
	if err := o.watcher.Add(path); err != nil {
		return err
	}
	o.watched[path] = true
	return nil
}

// forget drops bookkeeping for a removed or renamed path and its children.
// The kernel drops the watches themselves.
func (o *Observer) forget(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	prefix := path + string(filepath.Separator)
	for p := range o.watched {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(o.watched, p)
		}
	}
}
