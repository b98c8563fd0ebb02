package index

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSearchFixture indexes the standard two-pack workspace.
func newSearchFixture(t *testing.T) *Searcher {
	t.Helper()

	idx, _ := newTestIndexer(t)
	require.NoError(t, idx.IndexAll())
	return NewSearcher(idx)
}

func TestSearch_KeywordHeadingMatch(t *testing.T) {
	s := newSearchFixture(t)

	results, err := s.Search(context.Background(), SearchOptions{Query: "naming"})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "Naming", r.Chunk.Heading)
	assert.Equal(t, "test-skill/references/naming.md", r.Chunk.FilePath)
	assert.Equal(t, 1, r.Rank)
	assert.Greater(t, r.MatchCount, 0)
	assert.Greater(t, r.Score, float32(0))
}

func TestSearch_FindsTableRow(t *testing.T) {
	s := newSearchFixture(t)

	results, err := s.Search(context.Background(), SearchOptions{Query: "Sky"})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	var hitRow bool
	for _, r := range results {
		if r.Chunk.Content == "Sky | #00AAFF" {
			hitRow = true
		}
	}
	assert.True(t, hitRow, "row-level chunk should match")
}

func TestSearch_SkillFilter(t *testing.T) {
	s := newSearchFixture(t)

	results, err := s.Search(context.Background(), SearchOptions{Query: "thing"})
	require.NoError(t, err)
	assert.Len(t, results, 2, "both packs mention the query")

	results, err = s.Search(context.Background(), SearchOptions{Query: "thing", SkillName: "other-skill"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "other-skill", results[0].Chunk.SkillName)
}

func TestSearch_PathFilter(t *testing.T) {
	s := newSearchFixture(t)

	results, err := s.Search(context.Background(), SearchOptions{
		Query:    "kebab",
		FilePath: "test-skill/references/",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "test-skill/references/naming.md", results[0].Chunk.FilePath)
}

func TestSearch_Limit(t *testing.T) {
	s := newSearchFixture(t)

	results, err := s.Search(context.Background(), SearchOptions{Query: "thing", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_EmptyQuery(t *testing.T) {
	s := newSearchFixture(t)

	_, err := s.Search(context.Background(), SearchOptions{Query: "   "})
	assert.Error(t, err)
}

func TestSearch_NoMatches(t *testing.T) {
	s := newSearchFixture(t)

	results, err := s.Search(context.Background(), SearchOptions{Query: "zzgarbagezz"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"render-diagrams", []string{"render", "diagrams"}},
		{"EARS: event-driven", []string{"ears", "event", "driven"}},
		{"pkg/diagram.Renderer", []string{"pkg", "diagram", "renderer"}},
		{"a b", nil},
		{"", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tokenize(tt.input), tt.input)
	}
}

func TestFormatResults(t *testing.T) {
	out := FormatResults(nil)
	assert.Equal(t, "No matching skill documentation found.\n", out)

	out = FormatResults([]SearchResult{
		{
			Chunk: DocChunk{
				SkillName: "diagram-style",
				FilePath:  "diagram-style/SKILL.md",
				Heading:   "Render Settings",
				Content:   "## Render Settings\n\nUse the defaults unless asked.",
				StartLine: 10,
				EndLine:   14,
			},
			Score: 0.92,
			Rank:  1,
		},
	})

	assert.Contains(t, out, "## Matching Skill Documentation")
	assert.Contains(t, out, "### 1. Render Settings (diagram-style, 92% match)")
	assert.Contains(t, out, "`diagram-style/SKILL.md` L10-14")
	assert.Contains(t, out, "> Use the defaults unless asked.")
}

func TestFormatResults_EmptyHeadingFallsBackToFile(t *testing.T) {
	out := FormatResults([]SearchResult{
		{Chunk: DocChunk{FilePath: "notes/loose.md", Content: "stray text"}, Score: 0.5},
	})
	assert.Contains(t, out, "loose.md")
}

func TestExcerptOf(t *testing.T) {
	assert.Equal(t, "Run the thing.", excerptOf("## Usage\n\nRun the thing.", 240))
	assert.Equal(t, "", excerptOf("## Bare Heading", 240))

	long := strings.Repeat("word ", 100)
	got := excerptOf(long, 20)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), 23)
}
