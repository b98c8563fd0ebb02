// Package skillet provides skill pack tooling for agent-assisted
// development.
//
// A skill pack is a directory holding a SKILL.md manifest plus the
// reference material it links to. Packs teach coding assistants project
// conventions: diagram styling, requirements phrasing, feature spec
// templates, upgrade guides. skillet bundles a library of packs,
// installs them into projects, validates their manifests, renders the
// Mermaid diagrams they prescribe and checks Java dependency
// compatibility ahead of a version upgrade.
//
// # Quick Start
//
//	if err := skillet.InitProject("."); err != nil {
//	    log.Fatal(err)
//	}
//
//	packs, err := skillet.Discover(".")
//	for _, p := range packs {
//	    fmt.Println(p.Name, p.Description)
//	}
//
// # Layout
//
// The library surface lives in pkg/skill (manifests and discovery),
// pkg/diagram (Mermaid rendering), pkg/javadeps (upgrade analysis),
// pkg/tool (the tool plugin interface) and skills (the embedded
// library). This package re-exports the common entry points; the
// skillet CLI and skillet-service daemon build on the same packages.
package skillet

import (
	"context"

	"github.com/ternarybob/skillet/pkg/diagram"
	"github.com/ternarybob/skillet/pkg/javadeps"
	"github.com/ternarybob/skillet/pkg/skill"
	"github.com/ternarybob/skillet/pkg/tool"
	"github.com/ternarybob/skillet/skills"
)

// Skill is an alias for the parsed skill pack type.
type Skill = skill.Skill

// Metadata is an alias for skill pack front matter.
type Metadata = skill.Metadata

// RenderOptions is an alias for diagram rendering options.
type RenderOptions = diagram.Options

// RenderSummary is an alias for a diagram batch result.
type RenderSummary = diagram.Summary

// Tool is an alias for the tool plugin interface.
type Tool = tool.Tool

// Load parses one SKILL.md file.
func Load(path string) (*Skill, error) {
	return skill.Load(path)
}

// Discover returns the skills visible from a project root. Project
// packs shadow user packs with the same name.
func Discover(projectRoot string) ([]*Skill, error) {
	return skill.Discover(projectRoot)
}

// Find returns one discovered skill by name.
func Find(projectRoot, name string) (*Skill, error) {
	return skill.Find(projectRoot, name)
}

// InitProject creates .claude/skills under projectRoot and installs the
// bundled skill library into it.
func InitProject(projectRoot string) error {
	if err := skill.InitProject(projectRoot); err != nil {
		return err
	}
	return skills.EnsureAll(skill.ProjectSkillsDir(projectRoot))
}

// Library returns the bundled skill packs.
func Library() ([]*Skill, error) {
	return skills.ReadAll()
}

// RenderDiagrams renders every Mermaid file in dir, honoring the
// MERMAID_* environment overrides.
func RenderDiagrams(ctx context.Context, dir string) (*RenderSummary, error) {
	r := diagram.NewRenderer(diagram.OptionsFromEnv())
	return r.RenderDir(ctx, dir)
}

// AnalyzeJavaDeps checks the dependencies declared in projectDir
// against targetVersion.
func AnalyzeJavaDeps(projectDir, targetVersion string) (*javadeps.Result, error) {
	return javadeps.New(projectDir, targetVersion).Analyze()
}

// Tools returns a registry preloaded with the bundled tools.
func Tools() *tool.Registry {
	return tool.DefaultRegistry()
}
