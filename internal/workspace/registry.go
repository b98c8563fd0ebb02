// Package workspace provides workspace lifecycle management for
// skillet-service. A workspace is a registered directory of skill packs,
// typically a project's .claude/skills tree.
package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/skillet/internal/config"
	"github.com/ternarybob/skillet/internal/fileutil"
	"github.com/ternarybob/skillet/pkg/skill"
)

// Workspace represents a registered skill-pack directory.
type Workspace struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	RegisteredAt time.Time `json:"registered_at"`
}

// SkillsRoot returns the directory whose children are skill packs. A
// project root carrying .claude/skills resolves to that tree; anything
// else is treated as a bare packs directory.
func (w *Workspace) SkillsRoot() string {
	if p := skill.ProjectSkillsDir(w.Path); fileutil.IsDir(p) {
		return p
	}
	return w.Path
}

// Registry manages the collection of registered workspaces.
type Registry struct {
	mu         sync.RWMutex
	workspaces map[string]*Workspace
	path       string
}

// NewRegistry creates a new workspace registry.
func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{
		workspaces: make(map[string]*Workspace),
		path:       cfg.RegistryPath(),
	}
}

// Load reads the registry file. A missing file is an empty registry.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read registry: %w", err)
	}

	var workspaces []*Workspace
	if err := json.Unmarshal(raw, &workspaces); err != nil {
		return fmt.Errorf("parse registry: %w", err)
	}

	for _, ws := range workspaces {
		r.workspaces[ws.ID] = ws
	}

	return nil
}

// Save persists the registry to disk.
func (r *Registry) Save() error {
	workspaces := r.List()

	data, err := json.MarshalIndent(workspaces, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}

	if err := fileutil.WriteFileAtomic(r.path, data); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}

	return nil
}

// Add adds a workspace to the registry.
func (r *Registry) Add(ws *Workspace) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.workspaces {
		if existing.Path == ws.Path {
			return fmt.Errorf("workspace already registered with ID: %s", existing.ID)
		}
	}

	r.workspaces[ws.ID] = ws
	return nil
}

// Remove removes a workspace from the registry.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.workspaces[id]; !ok {
		return fmt.Errorf("workspace not found: %s", id)
	}

	delete(r.workspaces, id)
	return nil
}

// Get returns a workspace by ID.
func (r *Registry) Get(id string) (*Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ws, ok := r.workspaces[id]
	if !ok {
		return nil, fmt.Errorf("workspace not found: %s", id)
	}

	return ws, nil
}

// GetByPath returns the workspace registered for a path, comparing
// absolute forms.
func (r *Registry) GetByPath(path string) (*Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	for _, ws := range r.workspaces {
		if wsAbs, _ := filepath.Abs(ws.Path); wsAbs == abs {
			return ws, nil
		}
	}

	return nil, fmt.Errorf("workspace not found for path: %s", path)
}

// List returns all registered workspaces sorted by name.
func (r *Registry) List() []*Workspace {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workspaces := make([]*Workspace, 0, len(r.workspaces))
	for _, ws := range r.workspaces {
		workspaces = append(workspaces, ws)
	}

	sort.Slice(workspaces, func(i, j int) bool {
		if workspaces[i].Name != workspaces[j].Name {
			return workspaces[i].Name < workspaces[j].Name
		}
		return workspaces[i].ID < workspaces[j].ID
	})

	return workspaces
}

// Count returns the number of registered workspaces.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workspaces)
}
