package index

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"
)

// Searcher provides search over a workspace index.
type Searcher struct {
	indexer *Indexer
}

// NewSearcher creates a new Searcher.
func NewSearcher(indexer *Indexer) *Searcher {
	return &Searcher{indexer: indexer}
}

// Search queries the index. Semantic search runs first when an
// embedding backend is configured; keyword scoring covers everything
// else.
func (s *Searcher) Search(ctx context.Context, opts SearchOptions) ([]SearchResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if strings.TrimSpace(opts.Query) == "" {
		return nil, fmt.Errorf("search query is empty")
	}

	if s.indexer.HasEmbeddings() {
		results, err := s.semanticSearch(ctx, opts)
		if err == nil && len(results) > 0 {
			return results, nil
		}
	}

	return s.keywordSearch(opts), nil
}

// semanticSearch uses chromem's vector search over embedded chunks.
func (s *Searcher) semanticSearch(ctx context.Context, opts SearchOptions) ([]SearchResult, error) {
	col := s.indexer.GetCollection()
	if col == nil {
		return nil, nil
	}

	var where map[string]string
	if opts.SkillName != "" {
		where = map[string]string{"skill_name": opts.SkillName}
	}

	// chromem rejects result counts above the collection size.
	maxResults := opts.Limit * 3
	if maxResults > 50 {
		maxResults = 50
	}
	if count := col.Count(); maxResults > count {
		maxResults = count
	}
	if maxResults < 1 {
		return nil, nil
	}

	docs, err := col.Query(ctx, opts.Query, maxResults, where, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	var results []SearchResult
	for _, doc := range docs {
		if opts.FilePath != "" && !strings.HasPrefix(doc.Metadata["file_path"], opts.FilePath) {
			continue
		}

		results = append(results, SearchResult{
			Chunk: chunkFromResult(doc),
			Score: doc.Similarity,
			Rank:  len(results) + 1,
		})
		if len(results) >= opts.Limit {
			break
		}
	}

	return results, nil
}

// keywordSearch scores chunks by keyword hits. Heading and skill name
// matches outweigh body matches.
func (s *Searcher) keywordSearch(opts SearchOptions) []SearchResult {
	keywords := tokenize(opts.Query)
	if len(keywords) == 0 {
		return nil
	}

	type scored struct {
		chunk DocChunk
		score int
	}
	var matches []scored

	for _, chunk := range s.indexer.Chunks() {
		if opts.SkillName != "" && !strings.EqualFold(chunk.SkillName, opts.SkillName) {
			continue
		}
		if opts.FilePath != "" && !strings.HasPrefix(chunk.FilePath, opts.FilePath) {
			continue
		}

		heading := strings.ToLower(chunk.Heading)
		skillName := strings.ToLower(chunk.SkillName)
		content := strings.ToLower(chunk.Content)

		score := 0
		for _, kw := range keywords {
			if heading == kw {
				score += 10
			} else if strings.Contains(heading, kw) {
				score += 5
			}
			if strings.Contains(skillName, kw) {
				score += 3
			}
			score += strings.Count(content, kw)
		}

		if score > 0 {
			matches = append(matches, scored{chunk: chunk, score: score})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].chunk.ID < matches[j].chunk.ID
	})

	var results []SearchResult
	for i, m := range matches {
		if i >= opts.Limit {
			break
		}
		score := float32(m.score) / 100.0
		if score > 1 {
			score = 1
		}
		results = append(results, SearchResult{
			Chunk:      m.chunk,
			Score:      score,
			Rank:       i + 1,
			MatchCount: m.score,
		})
	}

	return results
}

// chunkFromResult reconstructs a DocChunk from a chromem result.
func chunkFromResult(doc chromem.Result) DocChunk {
	level, _ := strconv.Atoi(doc.Metadata["level"])
	startLine, _ := strconv.Atoi(doc.Metadata["start_line"])
	endLine, _ := strconv.Atoi(doc.Metadata["end_line"])

	return DocChunk{
		ID:        doc.ID,
		SkillName: doc.Metadata["skill_name"],
		FilePath:  doc.Metadata["file_path"],
		Heading:   doc.Metadata["heading"],
		Level:     level,
		Content:   doc.Content,
		StartLine: startLine,
		EndLine:   endLine,
		Hash:      doc.Metadata["hash"],
	}
}

// tokenize splits a query into lowercase keywords.
func tokenize(query string) []string {
	for _, r := range []string{".", ",", "_", "-", "(", ")", "`", ":", "|", "/"} {
		query = strings.ReplaceAll(query, r, " ")
	}

	var keywords []string
	for _, w := range strings.Fields(query) {
		if len(w) >= 2 {
			keywords = append(keywords, strings.ToLower(w))
		}
	}
	return keywords
}

// FormatResults renders search results as markdown.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return "No matching skill documentation found.\n"
	}

	var sb strings.Builder
	sb.WriteString("## Matching Skill Documentation\n\n")

	for i, r := range results {
		heading := r.Chunk.Heading
		if heading == "" {
			heading = path.Base(r.Chunk.FilePath)
		}

		sb.WriteString(fmt.Sprintf("### %d. %s (%s, %.0f%% match)\n",
			i+1, heading, r.Chunk.SkillName, r.Score*100))
		sb.WriteString(fmt.Sprintf("**File**: `%s` L%d-%d\n",
			r.Chunk.FilePath, r.Chunk.StartLine, r.Chunk.EndLine))

		if excerpt := excerptOf(r.Chunk.Content, 240); excerpt != "" {
			sb.WriteString(fmt.Sprintf("\n> %s\n", excerpt))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// excerptOf returns a single-line preview of chunk content, skipping
// the leading heading line.
func excerptOf(content string, max int) string {
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[0]), "#") {
		lines = lines[1:]
	}

	text := strings.Join(strings.Fields(strings.Join(lines, " ")), " ")
	if text == "" {
		return ""
	}

	if runes := []rune(text); len(runes) > max {
		text = string(runes[:max]) + "..."
	}
	return text
}
