// Package main provides the CLI entry point for the skillet skill pack toolkit.
//
// skillet manages skill packs: self-contained directories of agent-facing
// documentation (a SKILL.md manifest plus reference material) that teach
// coding assistants project conventions. The CLI installs the bundled
// library into a project, validates pack manifests, renders Mermaid
// diagrams and checks Java dependency compatibility ahead of an upgrade.
//
// Usage:
//
//	skillet render [dir]       - Render Mermaid diagrams to PNG images
//	skillet init [dir]         - Install the bundled skill library
//	skillet list               - List discovered skill packs
//	skillet info <name>        - Show a skill pack's metadata and outline
//	skillet validate [dir]     - Validate skill packs under a directory
//	skillet analyze-java       - Analyze Java dependency compatibility
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/skillet/pkg/diagram"
	"github.com/ternarybob/skillet/pkg/javadeps"
	"github.com/ternarybob/skillet/pkg/skill"
	"github.com/ternarybob/skillet/skills"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "render":
		err = cmdRender(args)
	case "init":
		err = cmdInit(args)
	case "list":
		err = cmdList(args)
	case "info":
		err = cmdInfo(args)
	case "validate":
		err = cmdValidate(args)
	case "analyze-java":
		err = cmdAnalyzeJava(args)
	case "version", "-v", "--version":
		fmt.Printf("skillet v%s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`skillet - skill pack toolkit for agent-assisted development

Commands:
  render [dir]         Render Mermaid (.mmd) diagrams to PNG images
                       (default directory: docs/diagrams)
  init [dir]           Create .claude/skills and install the bundled library
  list                 List skill packs from the project and user directories
  info <name>          Show a skill pack's metadata and section outline
  validate [dir]       Validate skill packs (default: .claude/skills)
  analyze-java         Check Java dependency compatibility for an upgrade
  version              Print the version
  help                 Show this help

Options for analyze-java:
  --target-version <v>   Java version to upgrade to (required)
  --source-version <v>   Current Java version (default: auto-detect)
  --project-dir <dir>    Project directory (default: .)
  --json                 Print the report as JSON

Environment for render:
  MERMAID_WIDTH    Page width in pixels (default: 2400)
  MERMAID_HEIGHT   Page height in pixels (default: 1600)
  MERMAID_SCALE    Scale factor (default: 2)
  MERMAID_BG       Background color (default: white)

Examples:
  skillet init
  skillet render docs/diagrams
  skillet info diagram-style
  skillet analyze-java --target-version 17 --json`)
}

// cmdRender renders every Mermaid file in a directory. Per-file failures
// are reported by the renderer and do not fail the command; only a
// missing directory or an uninstallable renderer does.
func cmdRender(args []string) error {
	dir := diagram.DefaultDir
	if len(args) > 0 {
		dir = args[0]
	}

	r := diagram.NewRenderer(diagram.OptionsFromEnv())
	_, err := r.RenderDir(context.Background(), dir)
	return err
}

// cmdInit creates the project skill directory and installs the bundled
// library into it, overwriting stale copies of bundled packs.
func cmdInit(args []string) error {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	if err := skill.InitProject(root); err != nil {
		return err
	}

	dir := skill.ProjectSkillsDir(root)
	if err := skills.EnsureAll(dir); err != nil {
		return err
	}

	fmt.Printf("Initialized %s\n", dir)
	for _, slug := range skills.All() {
		fmt.Printf("  installed %s\n", slug)
	}
	return nil
}

// cmdList prints discovered skill packs, project packs before user
// packs. A user pack whose name a project pack claims is shadowed.
func cmdList(args []string) error {
	projectDir := skill.ProjectSkillsDir(".")
	project, err := skill.LoadAll(projectDir)
	if err != nil {
		return err
	}

	var user []*skill.Skill
	userDir, udErr := skill.UserSkillsDir()
	if udErr == nil {
		user, err = skill.LoadAll(userDir)
		if err != nil {
			return err
		}
	}

	if len(project) == 0 && len(user) == 0 {
		fmt.Println("No skill packs found. Run 'skillet init' to install the bundled library.")
		return nil
	}

	if len(project) > 0 {
		fmt.Printf("Project skills (%s):\n", projectDir)
		for _, p := range project {
			fmt.Printf("  %-28s %s\n", p.Name, p.Description)
		}
	}

	if len(user) > 0 {
		inProject := make(map[string]bool, len(project))
		for _, p := range project {
			inProject[p.Name] = true
		}
		if len(project) > 0 {
			fmt.Println()
		}
		fmt.Printf("User skills (%s):\n", userDir)
		for _, u := range user {
			note := ""
			if inProject[u.Name] {
				note = " (shadowed by project skill)"
			}
			fmt.Printf("  %-28s %s%s\n", u.Name, u.Description, note)
		}
	}
	return nil
}

// cmdInfo prints one skill pack's metadata and its section outline.
func cmdInfo(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: skillet info <name>")
	}

	s, err := skill.Find(".", args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Name:        %s\n", s.Name)
	if s.Version != "" {
		fmt.Printf("Version:     %s\n", s.Version)
	}
	fmt.Printf("Description: %s\n", s.Description)
	if triggers := s.TriggerList(); len(triggers) > 0 {
		fmt.Printf("Triggers:    %s\n", strings.Join(triggers, ", "))
	}
	if len(s.Tags) > 0 {
		fmt.Printf("Tags:        %s\n", strings.Join(s.Tags, ", "))
	}
	if s.Author != "" {
		fmt.Printf("Author:      %s\n", s.Author)
	}
	if s.License != "" {
		fmt.Printf("License:     %s\n", s.License)
	}
	fmt.Printf("Path:        %s\n", s.Path)

	if outline := sectionOutline(s.Instructions); len(outline) > 0 {
		fmt.Println("\nSections:")
		for _, heading := range outline {
			fmt.Printf("  - %s\n", heading)
		}
	}
	return nil
}

// sectionOutline returns h2 headings in source order. The parsed
// section map loses ordering, so the outline is re-read from the body.
func sectionOutline(body string) []string {
	var headings []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "## ") {
			headings = append(headings, strings.TrimSpace(strings.TrimPrefix(line, "## ")))
		}
	}
	return headings
}

// cmdValidate checks every skill pack under a directory and reports
// per-pack errors. Unlike discovery, packs that fail to parse are
// reported as invalid instead of being skipped.
func cmdValidate(args []string) error {
	dir := skill.ProjectSkillsDir(".")
	if len(args) > 0 {
		dir = args[0]
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read skills directory: %w", err)
	}

	var checked, invalid int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		checked++
		s, err := skill.LoadDir(filepath.Join(dir, entry.Name()))
		if err != nil {
			invalid++
			fmt.Printf("  %-28s %v\n", entry.Name(), err)
			continue
		}
		if err := s.Validate(); err != nil {
			invalid++
			fmt.Printf("  %-28s %v\n", entry.Name(), err)
			continue
		}
		fmt.Printf("  %-28s ok\n", entry.Name())
	}

	if checked == 0 {
		fmt.Printf("No skill packs found in %s\n", dir)
		return nil
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d skill packs invalid", invalid, checked)
	}
	fmt.Printf("%d skill packs valid\n", checked)
	return nil
}

// cmdAnalyzeJava checks a Java project's declared dependencies against
// a target Java version. Exits non-zero when compatibility issues are
// found so the command can gate CI.
func cmdAnalyzeJava(args []string) error {
	projectDir := "."
	var target, source string
	jsonOut := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--target-version":
			if i+1 < len(args) {
				target = args[i+1]
				i++
			}
		case "--source-version":
			if i+1 < len(args) {
				source = args[i+1]
				i++
			}
		case "--project-dir":
			if i+1 < len(args) {
				projectDir = args[i+1]
				i++
			}
		case "--json":
			jsonOut = true
		default:
			return fmt.Errorf("unknown option: %s", args[i])
		}
	}
	if target == "" {
		return fmt.Errorf("usage: skillet analyze-java --target-version <version> [--source-version <version>] [--project-dir <dir>] [--json]")
	}

	analyzer := javadeps.New(projectDir, target)
	analyzer.SourceVersion = source

	result, err := analyzer.Analyze()
	if err != nil {
		return err
	}

	if jsonOut {
		data, err := result.JSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		result.Print(os.Stdout)
	}

	if result.HasIssues() {
		os.Exit(1)
	}
	return nil
}
