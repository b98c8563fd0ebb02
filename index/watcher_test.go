package index

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWatchedIndexer(t *testing.T) (*Indexer, string) {
	t.Helper()

	root := t.TempDir()
	writePack(t, root, "test-skill", testManifest, nil)

	cfg := DefaultConfig(root)
	cfg.IndexPath = filepath.Join(t.TempDir(), "index")
	cfg.DebounceMs = 50

	idx, err := NewIndexer(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, idx.IndexAll())

	return idx, root
}

func hasFile(idx *Indexer, relPath string) bool {
	for _, c := range idx.Chunks() {
		if c.FilePath == relPath {
			return true
		}
	}
	return false
}

func TestWatcher_IndexAndRemove(t *testing.T) {
	idx, root := newWatchedIndexer(t)

	w, err := NewWatcher(idx)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	assert.True(t, w.IsRunning())

	path := filepath.Join(root, "test-skill", "extra.md")
	require.NoError(t, os.WriteFile(path, []byte("# Extra\n\nFresh content here.\n"), 0644))

	assert.Eventually(t, func() bool {
		return hasFile(idx, "test-skill/extra.md")
	}, 3*time.Second, 50*time.Millisecond, "new markdown should be indexed")

	require.NoError(t, os.Remove(path))

	assert.Eventually(t, func() bool {
		return !hasFile(idx, "test-skill/extra.md")
	}, 3*time.Second, 50*time.Millisecond, "deleted markdown should leave the index")
}

func TestWatcher_IgnoresNonMarkdown(t *testing.T) {
	idx, root := newWatchedIndexer(t)
	before := idx.Stats().DocumentCount

	w, err := NewWatcher(idx)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "test-skill", "script.sh"), []byte("echo hi\n"), 0644))

	// Give the debounce loop time to run; nothing should change.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, before, idx.Stats().DocumentCount)
}

func TestWatcher_StartStopIdempotent(t *testing.T) {
	idx, _ := newWatchedIndexer(t)

	w, err := NewWatcher(idx)
	require.NoError(t, err)

	assert.NoError(t, w.Stop(), "stop before start is a no-op")

	require.NoError(t, w.Start())
	assert.NoError(t, w.Start(), "double start is a no-op")

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop(), "double stop is a no-op")
	assert.False(t, w.IsRunning())
}

func TestWatcher_ShouldSkipDir(t *testing.T) {
	idx, _ := newWatchedIndexer(t)
	w, err := NewWatcher(idx)
	require.NoError(t, err)

	assert.False(t, w.shouldSkipDir("."))
	assert.False(t, w.shouldSkipDir("test-skill"))
	assert.False(t, w.shouldSkipDir(filepath.Join("test-skill", "references")))
	assert.True(t, w.shouldSkipDir(".git"))
	assert.True(t, w.shouldSkipDir(filepath.Join(".git", "objects")))
	assert.True(t, w.shouldSkipDir("node_modules"))
	assert.True(t, w.shouldSkipDir(".hidden"))
}
