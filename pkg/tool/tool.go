// Package tool defines the contract for executable helpers that ship
// alongside skill packs. A skill's markdown tells an assistant when to
// reach for a tool; the tool itself is a named, typed operation that can
// be invoked from the CLI, the REST API, or over MCP.
package tool

import (
	"context"
	"strconv"
)

// Metadata identifies a tool and documents what it does.
type Metadata struct {
	// Name is the unique identifier for this tool.
	Name string `json:"name"`

	// Description explains what this tool does.
	Description string `json:"description"`

	// Skill names the skill pack this tool ships with.
	Skill string `json:"skill,omitempty"`

	// Usage is a one-line invocation hint.
	Usage string `json:"usage,omitempty"`
}

// Args carries invocation parameters. Values arrive as strings from the
// CLI and as decoded JSON from the API and MCP surfaces, so the
// accessors normalize both.
type Args map[string]any

// String returns the named argument or fallback when absent or empty.
func (a Args) String(key, fallback string) string {
	if v, ok := a[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// Int returns the named argument as an int. JSON numbers decode as
// float64 and CLI values as strings; both convert.
func (a Args) Int(key string, fallback int) int {
	switch v := a[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// Bool returns the named argument as a bool.
func (a Args) Bool(key string, fallback bool) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// Status indicates the outcome of a tool run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Result captures the outcome of a tool run.
type Result struct {
	// Tool indicates which tool ran.
	Tool string `json:"tool"`

	// Status indicates the run outcome.
	Status Status `json:"status"`

	// Message is a human-readable summary.
	Message string `json:"message,omitempty"`

	// Data holds tool-specific structured output.
	Data any `json:"data,omitempty"`
}

// NewResult creates a successful result for a tool.
func NewResult(tool string) *Result {
	return &Result{Tool: tool, Status: StatusSuccess}
}

// WithStatus sets the result status.
func (r *Result) WithStatus(status Status) *Result {
	r.Status = status
	return r
}

// WithMessage sets the result message.
func (r *Result) WithMessage(message string) *Result {
	r.Message = message
	return r
}

// WithData attaches structured output.
func (r *Result) WithData(data any) *Result {
	r.Data = data
	return r
}

// IsSuccess returns true if the run succeeded completely.
func (r *Result) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// Tool is the contract all skill tools implement.
type Tool interface {
	// Metadata returns tool identification and documentation.
	Metadata() Metadata

	// Run executes the tool with the given arguments.
	Run(ctx context.Context, args Args) (*Result, error)
}

// Func adapts a plain function into a Tool.
type Func struct {
	meta Metadata
	fn   func(ctx context.Context, args Args) (*Result, error)
}

// NewFunc creates a functional tool.
func NewFunc(meta Metadata, fn func(ctx context.Context, args Args) (*Result, error)) *Func {
	return &Func{meta: meta, fn: fn}
}

// Metadata returns the tool metadata.
func (f *Func) Metadata() Metadata {
	return f.meta
}

// Run executes the wrapped function.
func (f *Func) Run(ctx context.Context, args Args) (*Result, error) {
	if f.fn == nil {
		return NewResult(f.meta.Name).WithStatus(StatusFailed).WithMessage("no run function defined"), nil
	}
	return f.fn(ctx, args)
}
