package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const namingRef = `# Naming

Use kebab-case node ids.
`

// newTestIndexer builds an indexer over a fresh two-pack workspace.
func newTestIndexer(t *testing.T) (*Indexer, string) {
	t.Helper()

	root := t.TempDir()
	writePack(t, root, "test-skill", testManifest, map[string]string{
		"references/naming.md": namingRef,
	})
	writePack(t, root, "other-skill", `---
name: other-skill
description: Another pack.
---

# Other Skill

## Instructions

Do the other thing.
`, nil)

	cfg := DefaultConfig(root)
	cfg.IndexPath = filepath.Join(t.TempDir(), "index")

	idx, err := NewIndexer(cfg, nil)
	require.NoError(t, err)

	return idx, root
}

func TestNewIndexer_RequiresWorkspacePath(t *testing.T) {
	_, err := NewIndexer(Config{}, nil)
	assert.Error(t, err)
}

func TestNewIndexer_NoEmbeddingsWithoutAPIKey(t *testing.T) {
	idx, _ := newTestIndexer(t)

	assert.False(t, idx.HasEmbeddings())
	assert.Nil(t, idx.GetCollection())
}

func TestIndexAll(t *testing.T) {
	idx, _ := newTestIndexer(t)

	require.NoError(t, idx.IndexAll())

	stats := idx.Stats()
	assert.Equal(t, 3, stats.FileCount, "two manifests plus one reference")
	assert.Equal(t, 2, stats.SkillCount)
	// test-skill SKILL.md yields 6 chunks, its reference 1, other-skill 3.
	assert.Equal(t, 10, stats.DocumentCount)
	assert.False(t, stats.LastUpdated.IsZero())
}

func TestIndexAll_SkipsHiddenAndExcluded(t *testing.T) {
	idx, root := newTestIndexer(t)

	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "notes.md"), []byte("# Hidden\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "dep"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "dep", "README.md"), []byte("# Dep\n"), 0644))

	require.NoError(t, idx.IndexAll())

	for _, c := range idx.Chunks() {
		assert.NotContains(t, c.FilePath, ".git")
		assert.NotContains(t, c.FilePath, "node_modules")
	}
}

func TestIndexFile_ReplacesStaleChunks(t *testing.T) {
	idx, root := newTestIndexer(t)
	require.NoError(t, idx.IndexAll())
	before := idx.Stats().DocumentCount

	// Shrink the reference file; its chunk count must not grow.
	path := filepath.Join(root, "test-skill", "references", "naming.md")
	require.NoError(t, os.WriteFile(path, []byte("# Naming\n\nShorter.\n"), 0644))
	require.NoError(t, idx.IndexFile(path))

	assert.Equal(t, before, idx.Stats().DocumentCount)

	chunks, err := idx.parser.ParseFile(path)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "Shorter.")
}

func TestRemoveFile(t *testing.T) {
	idx, root := newTestIndexer(t)
	require.NoError(t, idx.IndexAll())

	path := filepath.Join(root, "test-skill", "references", "naming.md")
	require.NoError(t, os.Remove(path))
	require.NoError(t, idx.RemoveFile(path))

	stats := idx.Stats()
	assert.Equal(t, 2, stats.FileCount)
	for _, c := range idx.Chunks() {
		assert.NotContains(t, c.FilePath, "naming.md")
	}

	// Removing an unindexed file is a no-op.
	assert.NoError(t, idx.RemoveFile(filepath.Join(root, "ghost.md")))
}

func TestIndexer_PersistsAcrossRestarts(t *testing.T) {
	idx, root := newTestIndexer(t)
	require.NoError(t, idx.IndexAll())
	want := idx.Stats()

	reopened, err := NewIndexer(Config{
		WorkspacePath: root,
		IndexPath:     idx.GetConfig().IndexPath,
	}, nil)
	require.NoError(t, err)

	got := reopened.Stats()
	assert.Equal(t, want.DocumentCount, got.DocumentCount)
	assert.Equal(t, want.FileCount, got.FileCount)
	assert.Equal(t, want.SkillCount, got.SkillCount)
}

func TestExcluded(t *testing.T) {
	idx := &Indexer{cfg: Config{ExcludeGlobs: []string{".git/**", "node_modules/**", "*.tmp.md"}}}

	tests := []struct {
		rel  string
		want bool
	}{
		{".git", true},
		{".git/HEAD", true},
		{"node_modules/dep/README.md", true},
		{"pack/draft.tmp.md", true},
		{"pack/SKILL.md", false},
		{"gitter/notes.md", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, idx.excluded(tt.rel), tt.rel)
	}
}

func TestChunkStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.json")

	store := newChunkStore(path)
	require.NoError(t, store.load(), "missing snapshot is not an error")

	store.replaceFile("a/SKILL.md", []DocChunk{
		{ID: "a/SKILL.md:1", SkillName: "a", FilePath: "a/SKILL.md", Content: "x"},
	})
	require.NoError(t, store.save())

	fresh := newChunkStore(path)
	require.NoError(t, fresh.load())

	stats := fresh.stats()
	assert.Equal(t, 1, stats.DocumentCount)
	assert.Equal(t, 1, stats.FileCount)
	assert.Equal(t, 1, stats.SkillCount)
	assert.Equal(t, []string{"a/SKILL.md:1"}, fresh.ids("a/SKILL.md"))
}

func TestChunkStore_CorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	store := newChunkStore(path)
	assert.Error(t, store.load())
}
