// Package diagram batch-renders Mermaid diagram sources to images via the
// mermaid-cli (mmdc) tool, installing it on demand when absent.
package diagram

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	// DefaultDir is the input directory used when none is given.
	DefaultDir = "docs/diagrams"

	// InputExt and OutputExt select inputs and name outputs.
	InputExt  = ".mmd"
	OutputExt = ".png"

	cliName    = "mmdc"
	installPkg = "@mermaid-js/mermaid-cli"
)

// Options hold the rendering parameters. Values are kept as strings and
// passed to the CLI verbatim, the same way environment overrides reach a
// subprocess.
type Options struct {
	Width      string `json:"width"`
	Height     string `json:"height"`
	Scale      string `json:"scale"`
	Background string `json:"background"`
}

// DefaultOptions returns the built-in rendering defaults.
func DefaultOptions() Options {
	return Options{
		Width:      "2400",
		Height:     "1600",
		Scale:      "2",
		Background: "white",
	}
}

// OptionsFromEnv reads MERMAID_WIDTH, MERMAID_HEIGHT, MERMAID_SCALE and
// MERMAID_BG, keeping the default for any unset variable.
func OptionsFromEnv() Options {
	opts := DefaultOptions()
	if v := os.Getenv("MERMAID_WIDTH"); v != "" {
		opts.Width = v
	}
	if v := os.Getenv("MERMAID_HEIGHT"); v != "" {
		opts.Height = v
	}
	if v := os.Getenv("MERMAID_SCALE"); v != "" {
		opts.Scale = v
	}
	if v := os.Getenv("MERMAID_BG"); v != "" {
		opts.Background = v
	}
	return opts
}

// Summary reports the outcome of one batch run.
type Summary struct {
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Outputs   []string `json:"outputs,omitempty"`
}

// Renderer converts .mmd files to images. Per-file failures never abort
// the batch; only a missing CLI or a missing input directory is fatal.
type Renderer struct {
	opts    Options
	out     io.Writer
	cliPath string

	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
}

// NewRenderer creates a renderer with the given options.
func NewRenderer(opts Options) *Renderer {
	return &Renderer{
		opts:     opts,
		out:      os.Stdout,
		lookPath: exec.LookPath,
		run:      runCommand,
	}
}

// SetOutput redirects progress messages, which go to stdout by default.
func (r *Renderer) SetOutput(w io.Writer) {
	r.out = w
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run()
}

// EnsureCLI locates mmdc, installing it globally through npm when absent.
// It fails when the tool cannot be located and cannot be installed.
func (r *Renderer) EnsureCLI(ctx context.Context) (string, error) {
	if r.cliPath != "" {
		return r.cliPath, nil
	}

	if path, err := r.lookPath(cliName); err == nil {
		r.cliPath = path
		return path, nil
	}

	npm, err := r.lookPath("npm")
	if err != nil {
		return "", fmt.Errorf("%s not found and npm is unavailable to install %s", cliName, installPkg)
	}

	fmt.Fprintf(r.out, "%s not found, installing %s...\n", cliName, installPkg)
	if err := r.run(ctx, npm, "install", "-g", installPkg); err != nil {
		return "", fmt.Errorf("install %s: %w", installPkg, err)
	}

	path, err := r.lookPath(cliName)
	if err != nil {
		return "", fmt.Errorf("%s still not found after install", cliName)
	}

	r.cliPath = path
	return path, nil
}

// RenderDir renders every .mmd file directly under dir, in enumeration
// order, writing one image next to each input. Per-file failures are
// logged as FAILED and counted; the batch always runs to completion.
func (r *Renderer) RenderDir(ctx context.Context, dir string) (*Summary, error) {
	if _, err := r.EnsureCLI(ctx); err != nil {
		return nil, err
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("target directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("target %s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var inputs []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), InputExt) {
			continue
		}
		inputs = append(inputs, entry.Name())
	}

	summary := &Summary{Total: len(inputs)}
	if len(inputs) == 0 {
		fmt.Fprintf(r.out, "No %s files found in %s\n", InputExt, dir)
		return summary, nil
	}

	for _, name := range inputs {
		inPath := filepath.Join(dir, name)
		outName := strings.TrimSuffix(name, InputExt) + OutputExt
		outPath := filepath.Join(dir, outName)

		fmt.Fprintf(r.out, "Rendering %s -> %s\n", name, outName)
		if err := r.RenderFile(ctx, inPath, outPath); err != nil {
			fmt.Fprintf(r.out, "FAILED: %s\n", name)
			summary.Failed++
			continue
		}

		summary.Succeeded++
		summary.Outputs = append(summary.Outputs, outPath)
	}

	fmt.Fprintf(r.out, "%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	return summary, nil
}

// RenderFile renders a single diagram source to outPath.
func (r *Renderer) RenderFile(ctx context.Context, inPath, outPath string) error {
	cli, err := r.EnsureCLI(ctx)
	if err != nil {
		return err
	}

	return r.run(ctx, cli,
		"-i", inPath,
		"-o", outPath,
		"-w", r.opts.Width,
		"-H", r.opts.Height,
		"-s", r.opts.Scale,
		"-b", r.opts.Background,
		"--quiet",
	)
}
