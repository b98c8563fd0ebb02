package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// flushInterval is how often pending changes are checked against the
// debounce window.
const flushInterval = 100 * time.Millisecond

// Watcher keeps a workspace index current: markdown writes, new pack
// directories, and deletions feed incremental reindexing after a
// debounce window.
type Watcher struct {
	indexer *Indexer
	fsw     *fsnotify.Watcher
	window  time.Duration

	mu      sync.RWMutex
	running bool
	quit    chan struct{}

	// dirty maps absolute paths to the time of their last event.
	dirty   map[string]time.Time
	dirtyMu sync.Mutex
}

// NewWatcher creates a watcher over the indexer's workspace. Call Start
// to begin receiving events.
func NewWatcher(indexer *Indexer) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	return &Watcher{
		indexer: indexer,
		fsw:     fsw,
		window:  time.Duration(indexer.cfg.DebounceMs) * time.Millisecond,
		quit:    make(chan struct{}),
		dirty:   make(map[string]time.Time),
	}, nil
}

// Start watches the workspace tree and launches the event loop.
// Starting twice is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	already := w.running
	w.running = true
	w.mu.Unlock()
	if already {
		return nil
	}

	if err := w.addTree(w.indexer.GetConfig().WorkspacePath); err != nil {
		return fmt.Errorf("add directories: %w", err)
	}

	go w.run()
	return nil
}

// Stop shuts the watcher down. Stopping twice, or before Start, is a
// no-op.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	w.running = false
	close(w.quit)
	return w.fsw.Close()
}

// IsRunning reports whether the event loop is live.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()
	return running
}

// run is the event loop: file events land in the dirty set, and every
// flushInterval the set is swept for entries older than the window.
func (w *Watcher) run() {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.quit:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "watcher error: %v\n", err)
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Newly installed packs arrive as whole directories and need their
	// own watches.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.shouldSkipDir(w.rel(event.Name)) {
				_ = w.addTree(event.Name)
			}
			return
		}
	}

	if !strings.HasSuffix(event.Name, ".md") {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.dirtyMu.Lock()
	w.dirty[event.Name] = time.Now()
	w.dirtyMu.Unlock()
}

// flush reindexes files whose last event is outside the debounce
// window. Files that no longer exist leave the index instead.
func (w *Watcher) flush() {
	w.dirtyMu.Lock()
	defer w.dirtyMu.Unlock()

	now := time.Now()
	for path, last := range w.dirty {
		if now.Sub(last) < w.window {
			continue
		}
		delete(w.dirty, path)

		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := w.indexer.RemoveFile(path); err != nil {
				fmt.Fprintf(os.Stderr, "error removing %s from index: %v\n", path, err)
			}
			continue
		}
		if err := w.indexer.IndexFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "error indexing %s: %v\n", path, err)
		}
	}
}

// addTree walks root and registers every directory that can hold skill
// markdown.
func (w *Watcher) addTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if w.shouldSkipDir(w.rel(path)) {
			return filepath.SkipDir
		}
		// Some directories might not be accessible; log and move on.
		if err := w.fsw.Add(path); err != nil {
			fmt.Fprintf(os.Stderr, "warning: cannot watch %s: %v\n", path, err)
		}
		return nil
	})
}

// rel returns the path relative to the workspace root.
func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.indexer.GetConfig().WorkspacePath, path)
	if err != nil {
		return path
	}
	return rel
}

// shouldSkipDir reports whether a directory can be ignored entirely.
// Hidden directories inside the workspace are never skill packs.
func (w *Watcher) shouldSkipDir(relPath string) bool {
	if relPath == "." {
		return false
	}

	for _, dir := range []string{".git", ".skillet", "node_modules"} {
		if relPath == dir || strings.HasPrefix(relPath, dir+string(filepath.Separator)) {
			return true
		}
	}

	return strings.HasPrefix(filepath.Base(relPath), ".")
}
