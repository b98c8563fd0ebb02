package index

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/ternarybob/skillet/pkg/skill"
)

// Parser splits skill-pack markdown into indexable chunks.
type Parser struct {
	workspaceRoot string
	md            goldmark.Markdown
}

// NewParser creates a Parser rooted at the workspace directory.
func NewParser(workspaceRoot string) *Parser {
	return &Parser{
		workspaceRoot: workspaceRoot,
		md:            goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

// ParseFile extracts all indexable chunks from a markdown file. Each
// heading opens a chunk that runs to the next heading. Table rows are
// also indexed individually so a lookup for a single palette or naming
// entry hits the right row. For SKILL.md manifests the front matter
// description becomes its own chunk.
func (p *Parser) ParseFile(path string) ([]DocChunk, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	relPath, err := filepath.Rel(p.workspaceRoot, path)
	if err != nil {
		relPath = path
	}
	relPath = filepath.ToSlash(relPath)

	skillName := p.skillNameFor(path)
	now := time.Now()

	// Front matter delimiters would otherwise parse as thematic breaks
	// and setext headings.
	body, bodyStart := splitFrontMatter(src)

	doc := p.md.Parser().Parse(text.NewReader(body))

	offsets := lineOffsets(body)
	lineFor := func(off int) int {
		return sort.Search(len(offsets), func(i int) bool { return offsets[i] > off })
	}

	type headingMark struct {
		line  int // 1-based within body
		level int
		title string
	}
	type rowMark struct {
		line  int
		cells []string
	}

	var headings []headingMark
	var rows []rowMark

	_ = gast.Walk(doc, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *gast.Heading:
			off := nodeOffset(node)
			if off < 0 {
				return gast.WalkContinue, nil
			}
			headings = append(headings, headingMark{
				line:  lineFor(off),
				level: node.Level,
				title: string(node.Text(body)),
			})

		case *east.TableRow:
			off := nodeOffset(node)
			if off < 0 {
				return gast.WalkSkipChildren, nil
			}
			rows = append(rows, rowMark{line: lineFor(off), cells: rowCells(node, body)})
			return gast.WalkSkipChildren, nil
		}

		return gast.WalkContinue, nil
	})

	bodyLines := strings.Split(string(body), "\n")
	lastLine := len(bodyLines)
	if lastLine > 0 && bodyLines[lastLine-1] == "" {
		lastLine--
	}

	var chunks []DocChunk
	add := func(heading string, level, start, end int, content string) {
		content = strings.TrimRight(content, " \t\r\n")
		if strings.TrimSpace(content) == "" {
			return
		}
		fileStart := start + bodyStart - 1
		chunks = append(chunks, DocChunk{
			ID:        fmt.Sprintf("%s:%d", relPath, fileStart),
			SkillName: skillName,
			FilePath:  relPath,
			Heading:   heading,
			Level:     level,
			Content:   content,
			StartLine: fileStart,
			EndLine:   end + bodyStart - 1,
			Hash:      hashContent(content),
			IndexedAt: now,
		})
	}

	// Manifest metadata is search-relevant but lives outside the body.
	if filepath.Base(path) == skill.FileName && bodyStart > 1 {
		if s, perr := skill.Parse(src); perr == nil && s.Description != "" {
			meta := s.Description
			if len(s.Triggers) > 0 {
				meta += "\nTriggers: " + strings.Join(s.Triggers, ", ")
			}
			chunks = append(chunks, DocChunk{
				ID:        fmt.Sprintf("%s:%d", relPath, 1),
				SkillName: skillName,
				FilePath:  relPath,
				Heading:   s.Name,
				Level:     0,
				Content:   meta,
				StartLine: 1,
				EndLine:   bodyStart - 1,
				Hash:      hashContent(meta),
				IndexedAt: now,
			})
		}
	}

	if len(headings) == 0 {
		add("", 0, 1, lastLine, string(body))
	} else {
		if headings[0].line > 1 {
			add("", 0, 1, headings[0].line-1, strings.Join(bodyLines[:headings[0].line-1], "\n"))
		}
		for i, h := range headings {
			end := lastLine
			if i+1 < len(headings) {
				end = headings[i+1].line - 1
			}
			add(h.title, h.level, h.line, end, strings.Join(bodyLines[h.line-1:end], "\n"))
		}
	}

	for _, row := range rows {
		heading, level := "", 0
		for _, h := range headings {
			if h.line >= row.line {
				break
			}
			heading, level = h.title, h.level
		}
		add(heading, level, row.line, row.line, strings.Join(row.cells, " | "))
	}

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].StartLine < chunks[j].StartLine })

	return chunks, nil
}

// skillNameFor resolves the owning pack by walking up to the nearest
// directory that holds a SKILL.md manifest.
func (p *Parser) skillNameFor(path string) string {
	dir := filepath.Dir(path)
	root := filepath.Clean(p.workspaceRoot)

	for {
		if _, err := os.Stat(filepath.Join(dir, skill.FileName)); err == nil {
			return filepath.Base(dir)
		}
		if dir == root {
			return ""
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// splitFrontMatter strips a leading YAML front matter block. It returns
// the remaining body and the 1-based file line the body starts on.
func splitFrontMatter(src []byte) ([]byte, int) {
	if !bytes.HasPrefix(src, []byte("---\n")) && !bytes.HasPrefix(src, []byte("---\r\n")) {
		return src, 1
	}

	lines := bytes.SplitAfter(src, []byte("\n"))
	for i := 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(string(lines[i]))
		if trimmed == "---" || trimmed == "..." {
			return bytes.Join(lines[i+1:], nil), i + 2
		}
	}

	// Unclosed front matter, treat the whole file as body.
	return src, 1
}

// lineOffsets returns the byte offset of each line start.
func lineOffsets(src []byte) []int {
	offsets := []int{0}
	for i, b := range src {
		if b == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// nodeOffset returns the source byte offset of a node, descending into
// children when the node itself carries no segments. Lines() is only
// valid on block nodes.
func nodeOffset(n gast.Node) int {
	if t, ok := n.(*gast.Text); ok {
		return t.Segment.Start
	}
	if n.Type() == gast.TypeBlock {
		if lines := n.Lines(); lines != nil && lines.Len() > 0 {
			return lines.At(0).Start
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if off := nodeOffset(c); off >= 0 {
			return off
		}
	}
	return -1
}

// rowCells collects the trimmed cell texts of a table row.
func rowCells(row *east.TableRow, source []byte) []string {
	var cells []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		cells = append(cells, strings.TrimSpace(string(cell.Text(source))))
	}
	return cells
}

// hashContent returns a SHA-256 hash of the content.
func hashContent(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}
