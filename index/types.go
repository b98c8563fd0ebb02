// Package index maintains per-workspace search indexes over skill-pack
// markdown. Files are split into heading-scoped chunks, kept in a local
// store and, when an embedding backend is configured, mirrored into a
// persistent chromem-go collection for semantic search. Keyword search
// works without any API key.
package index

import (
	"path/filepath"
	"strconv"
	"time"
)

// DocChunk is an indexed span of skill documentation: one heading
// section, one table row, or the manifest front matter.
type DocChunk struct {
	ID        string    `json:"id"`         // file_path:start_line
	SkillName string    `json:"skill_name"` // Owning pack directory name
	FilePath  string    `json:"file_path"`  // Relative to the workspace root
	Heading   string    `json:"heading"`    // Nearest heading text
	Level     int       `json:"level"`      // Heading level, 0 for preamble/front matter
	Content   string    `json:"content"`    // Raw markdown of the span
	StartLine int       `json:"start_line"`
	EndLine   int       `json:"end_line"`
	Hash      string    `json:"hash"` // SHA-256 of Content
	IndexedAt time.Time `json:"indexed_at"`
}

// ToMetadata flattens chunk fields to map[string]string for chromem storage.
func (c *DocChunk) ToMetadata() map[string]string {
	return map[string]string{
		"skill_name": c.SkillName,
		"file_path":  c.FilePath,
		"heading":    c.Heading,
		"level":      strconv.Itoa(c.Level),
		"start_line": strconv.Itoa(c.StartLine),
		"end_line":   strconv.Itoa(c.EndLine),
		"hash":       c.Hash,
	}
}

// SearchOptions configures search behavior.
type SearchOptions struct {
	Query     string // Search query
	SkillName string // Filter by owning skill (empty = all)
	FilePath  string // Filter by path prefix (empty = all)
	Limit     int    // Max results (default 10)
}

// SearchResult represents a single search match.
type SearchResult struct {
	Chunk      DocChunk // The matched chunk
	Score      float32  // Similarity score (0-1)
	Rank       int      // Position in results
	MatchCount int      // Keyword hits (keyword search only)
}

// Stats provides statistics about the index.
type Stats struct {
	DocumentCount int       // Total chunks in the index
	FileCount     int       // Unique files indexed
	SkillCount    int       // Distinct skill packs seen
	LastUpdated   time.Time // Last index mutation
}

// Config configures the Indexer.
type Config struct {
	WorkspaceID   string   // Stable identifier (hash of the path)
	WorkspacePath string   // Absolute path to the workspace root
	IndexPath     string   // Index storage directory
	ExcludeGlobs  []string // Workspace-relative globs to skip
	DebounceMs    int      // Watcher debounce window, default 500
}

// DefaultConfig returns a Config with sensible defaults. The index is
// stored inside the workspace unless IndexPath is overridden.
func DefaultConfig(workspacePath string) Config {
	return Config{
		WorkspacePath: workspacePath,
		IndexPath:     filepath.Join(workspacePath, ".skillet", "index"),
		ExcludeGlobs: []string{
			".git/**",
			".skillet/**",
			"node_modules/**",
		},
		DebounceMs: 500,
	}
}
