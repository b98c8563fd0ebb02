package tool

import (
	"context"
	"fmt"
	"io"

	"github.com/ternarybob/skillet/pkg/diagram"
	"github.com/ternarybob/skillet/pkg/javadeps"
)

// Builtins returns the tools bundled with the skill library.
func Builtins() []Tool {
	return []Tool{
		NewRenderDiagrams(),
		NewAnalyzeJavaDeps(),
	}
}

// DefaultRegistry returns a registry preloaded with the bundled tools.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, t := range Builtins() {
		// Names are unique within Builtins.
		_ = r.Register(t)
	}
	return r
}

// RenderDiagrams batch-renders Mermaid diagrams to PNG.
type RenderDiagrams struct {
	progress io.Writer
}

// NewRenderDiagrams creates the diagram rendering tool. Progress lines
// are discarded; callers read the returned summary.
func NewRenderDiagrams() *RenderDiagrams {
	return &RenderDiagrams{progress: io.Discard}
}

func (t *RenderDiagrams) Metadata() Metadata {
	return Metadata{
		Name:        "render-diagrams",
		Description: "Render all Mermaid .mmd files in a directory to PNG images",
		Skill:       "diagram-style",
		Usage:       "render-diagrams [dir]",
	}
}

func (t *RenderDiagrams) Run(ctx context.Context, args Args) (*Result, error) {
	opts := diagram.OptionsFromEnv()
	if v := args.String("width", ""); v != "" {
		opts.Width = v
	}
	if v := args.String("height", ""); v != "" {
		opts.Height = v
	}
	if v := args.String("scale", ""); v != "" {
		opts.Scale = v
	}
	if v := args.String("background", ""); v != "" {
		opts.Background = v
	}

	r := diagram.NewRenderer(opts)
	r.SetOutput(t.progress)

	summary, err := r.RenderDir(ctx, args.String("dir", diagram.DefaultDir))
	if err != nil {
		return nil, err
	}

	result := NewResult("render-diagrams").
		WithData(summary).
		WithMessage(fmt.Sprintf("%d succeeded, %d failed", summary.Succeeded, summary.Failed))
	if summary.Failed > 0 {
		result.WithStatus(StatusPartial)
	}
	return result, nil
}

// AnalyzeJavaDeps checks a Java project's dependencies against a target
// Java version.
type AnalyzeJavaDeps struct{}

// NewAnalyzeJavaDeps creates the Java dependency analysis tool.
func NewAnalyzeJavaDeps() *AnalyzeJavaDeps {
	return &AnalyzeJavaDeps{}
}

func (t *AnalyzeJavaDeps) Metadata() Metadata {
	return Metadata{
		Name:        "analyze-java-deps",
		Description: "Analyze Maven or Gradle dependencies for Java version upgrade issues",
		Skill:       "java-version-upgrade",
		Usage:       "analyze-java-deps --target-version N [--project-dir DIR]",
	}
}

func (t *AnalyzeJavaDeps) Run(ctx context.Context, args Args) (*Result, error) {
	target := args.String("target_version", "")
	if target == "" {
		return nil, fmt.Errorf("target_version is required")
	}

	analyzer := javadeps.New(args.String("project_dir", "."), target)
	analyzer.SourceVersion = args.String("source_version", "")

	analysis, err := analyzer.Analyze()
	if err != nil {
		return nil, err
	}

	result := NewResult("analyze-java-deps").WithData(analysis)
	if analysis.HasIssues() {
		result.WithStatus(StatusPartial).
			WithMessage(fmt.Sprintf("%d compatibility issues found", len(analysis.CompatibilityIssues)))
	} else {
		result.WithMessage("no compatibility issues found")
	}
	return result, nil
}
