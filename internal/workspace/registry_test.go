package workspace

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/skillet/internal/config"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_GEMINI_API_KEY", "")

	cfg := config.DefaultConfig()
	cfg.Service.DataDir = t.TempDir()
	return cfg
}

func testWorkspace(id, path, name string) *Workspace {
	return &Workspace{
		ID:           id,
		Path:         path,
		Name:         name,
		RegisteredAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRegistry_AddGet(t *testing.T) {
	r := NewRegistry(newTestConfig(t))

	ws := testWorkspace("abc123", "/some/path", "path")
	require.NoError(t, r.Add(ws))

	got, err := r.Get("abc123")
	require.NoError(t, err)
	assert.Equal(t, ws, got)

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestRegistry_AddDuplicatePath(t *testing.T) {
	r := NewRegistry(newTestConfig(t))

	require.NoError(t, r.Add(testWorkspace("id1", "/same/path", "path")))

	err := r.Add(testWorkspace("id2", "/same/path", "path"))
	require.Error(t, err, "second registration of the same path should fail")
	assert.Contains(t, err.Error(), "id1")
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry(newTestConfig(t))

	require.NoError(t, r.Add(testWorkspace("id1", "/p", "p")))
	require.NoError(t, r.Remove("id1"))
	assert.Equal(t, 0, r.Count())

	assert.Error(t, r.Remove("id1"), "removing twice should fail")
}

func TestRegistry_GetByPath(t *testing.T) {
	r := NewRegistry(newTestConfig(t))

	dir := t.TempDir()
	require.NoError(t, r.Add(testWorkspace("id1", dir, filepath.Base(dir))))

	got, err := r.GetByPath(dir)
	require.NoError(t, err)
	assert.Equal(t, "id1", got.ID)

	_, err = r.GetByPath(filepath.Join(dir, "elsewhere"))
	assert.Error(t, err)
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry(newTestConfig(t))

	require.NoError(t, r.Add(testWorkspace("id-b", "/b", "beta")))
	require.NoError(t, r.Add(testWorkspace("id-a", "/a", "alpha")))

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "beta", list[1].Name)
}

func TestRegistry_SaveLoad(t *testing.T) {
	cfg := newTestConfig(t)

	r := NewRegistry(cfg)
	ws := testWorkspace("id1", "/some/path", "path")
	require.NoError(t, r.Add(ws))
	require.NoError(t, r.Save())

	reloaded := NewRegistry(cfg)
	require.NoError(t, reloaded.Load())

	got, err := reloaded.Get("id1")
	require.NoError(t, err)
	assert.Equal(t, ws.Path, got.Path)
	assert.Equal(t, ws.Name, got.Name)
	assert.True(t, ws.RegisteredAt.Equal(got.RegisteredAt))
}

func TestRegistry_LoadMissingFile(t *testing.T) {
	r := NewRegistry(newTestConfig(t))

	require.NoError(t, r.Load(), "missing registry file is not an error")
	assert.Equal(t, 0, r.Count())
}
