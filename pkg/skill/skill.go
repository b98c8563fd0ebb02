// Package skill provides parsing, validation and discovery for skill packs.
//
// A skill pack is a directory holding a SKILL.md manifest plus optional
// references/, templates/ and scripts/ assets. SKILL.md starts with YAML
// front matter followed by Markdown instructions:
//
//	---
//	name: diagram-style
//	description: Conventions for authoring architecture diagrams.
//	---
//
//	# Diagram Style
//
//	## Instructions
//	...
//
// Packs without front matter are still accepted: the h1 title becomes the
// name and the first paragraph the description.
package skill

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/frontmatter"
)

// FileName is the manifest file every skill pack carries.
const FileName = "SKILL.md"

// Metadata is the YAML front matter of a SKILL.md file.
type Metadata struct {
	// Name is the skill identifier (lowercase letters, digits, hyphens).
	Name string `yaml:"name" json:"name"`

	// Description explains what the skill does and when to use it.
	Description string `yaml:"description" json:"description"`

	// Version is an optional dotted-numeric version.
	Version string `yaml:"version,omitempty" json:"version,omitempty"`

	// Triggers are phrases that should activate this skill.
	Triggers []string `yaml:"triggers,omitempty" json:"triggers,omitempty"`

	// Tags classify the skill.
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`

	// Author identifies the pack author.
	Author string `yaml:"author,omitempty" json:"author,omitempty"`

	// License is an optional license identifier.
	License string `yaml:"license,omitempty" json:"license,omitempty"`
}

// Skill is a parsed skill pack manifest.
type Skill struct {
	Metadata

	// Instructions is the markdown body after the front matter.
	Instructions string

	// Sections maps lowercased h2 headings to their body. Subsections
	// (h3 and below) stay inside their parent section.
	Sections map[string]string

	// Dir is the pack directory, Path the SKILL.md path (set by Load).
	Dir  string
	Path string

	// Raw is the full file content.
	Raw string
}

// Parse parses SKILL.md content.
func Parse(raw []byte) (*Skill, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("parse skill: empty content")
	}

	s := &Skill{Raw: string(raw)}

	body, err := frontmatter.Parse(bytes.NewReader(raw), &s.Metadata)
	if err != nil {
		return nil, fmt.Errorf("parse front matter: %w", err)
	}

	s.Instructions = strings.TrimSpace(string(body))
	s.Sections = parseSections(s.Instructions)

	// Legacy packs carry no front matter; derive metadata from the body.
	if s.Name == "" {
		if title, ok := s.Sections["title"]; ok {
			s.Name = slugify(title)
		}
	}
	if s.Description == "" {
		s.Description = firstParagraph(s.Instructions)
	}

	return s, nil
}

// Load reads and parses a SKILL.md file.
func Load(path string) (*Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skill: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	s.Path = path
	s.Dir = filepath.Dir(path)
	return s, nil
}

// LoadDir loads the SKILL.md manifest from a pack directory.
func LoadDir(dir string) (*Skill, error) {
	return Load(filepath.Join(dir, FileName))
}

// Section returns a section body by its h2 heading (case-insensitive).
func (s *Skill) Section(heading string) (string, bool) {
	body, ok := s.Sections[strings.ToLower(heading)]
	return body, ok
}

// TriggerList returns triggers from front matter, falling back to a
// "## Triggers" list in the body for legacy packs.
func (s *Skill) TriggerList() []string {
	if len(s.Triggers) > 0 {
		return s.Triggers
	}
	if body, ok := s.Sections["triggers"]; ok {
		return parseList(body)
	}
	return nil
}

// parseSections splits markdown into sections by heading.
func parseSections(content string) map[string]string {
	sections := make(map[string]string)
	lines := strings.Split(content, "\n")

	var currentSection string
	var currentContent strings.Builder

	flush := func() {
		if currentSection != "" {
			sections[currentSection] = strings.TrimSpace(currentContent.String())
		}
	}

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "# "):
			flush()
			sections["title"] = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			currentSection = ""
			currentContent.Reset()
		case strings.HasPrefix(line, "## "):
			flush()
			currentSection = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "## ")))
			currentContent.Reset()
		default:
			currentContent.WriteString(line)
			currentContent.WriteString("\n")
		}
	}
	flush()

	return sections
}

// parseList parses a markdown bullet list into a string slice.
func parseList(content string) []string {
	var items []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		var item string
		switch {
		case strings.HasPrefix(line, "- "):
			item = strings.TrimPrefix(line, "- ")
		case strings.HasPrefix(line, "* "):
			item = strings.TrimPrefix(line, "* ")
		}
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// firstParagraph returns the first non-heading paragraph of markdown.
func firstParagraph(content string) string {
	var para []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			if len(para) > 0 {
				break
			}
			continue
		}
		para = append(para, trimmed)
	}
	return strings.Join(para, " ")
}

// slugify lowercases a title into a name-shaped identifier.
func slugify(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
