package tool

import (
	"fmt"
	"slices"
	"sync"
)

// Registry manages tool registration and lookup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string // registration order, for stable listings
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta := t.Metadata()
	if meta.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	if _, exists := r.tools[meta.Name]; exists {
		return fmt.Errorf("tool %q already registered", meta.Name)
	}

	r.tools[meta.Name] = t
	r.order = append(r.order, meta.Name)
	return nil
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; !exists {
		return fmt.Errorf("tool %q not found", name)
	}
	delete(r.tools, name)

	if i := slices.Index(r.order, name); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tools[name]
	return t, exists
}

// List returns all registered tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, len(r.order))
	for i, name := range r.order {
		tools[i] = r.tools[name]
	}
	return tools
}

// ListMetadata returns metadata for all registered tools.
func (r *Registry) ListMetadata() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metas := make([]Metadata, len(r.order))
	for i, name := range r.order {
		metas[i] = r.tools[name].Metadata()
	}
	return metas
}

// FindBySkill returns the tools shipped by a skill pack.
func (r *Registry) FindBySkill(skill string) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []Tool
	for _, name := range r.order {
		if r.tools[name].Metadata().Skill == skill {
			matched = append(matched, r.tools[name])
		}
	}
	return matched
}

// Count returns how many tools are registered.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Has reports whether a tool with this name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}
