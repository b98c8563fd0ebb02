package workspace

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/ternarybob/skillet/index"
	"github.com/ternarybob/skillet/internal/config"
	"github.com/ternarybob/skillet/internal/fileutil"
	"github.com/ternarybob/skillet/internal/logger"
)

// Manager handles workspace lifecycle including indexing and watching.
type Manager struct {
	cfg      *config.Config
	registry *Registry
	llm      *index.LLMClient
	indexers map[string]*index.Indexer
	watchers map[string]*index.Watcher
	mu       sync.RWMutex
}

// NewManager creates a new workspace manager. A single LLM client is shared
// across workspace indexers; it is nil when no Gemini API key is configured,
// which disables embeddings but not keyword search.
func NewManager(cfg *config.Config, registry *Registry) *Manager {
	llmCfg := index.DefaultLLMConfig()
	if cfg.LLM.APIKey != "" {
		llmCfg.APIKey = cfg.LLM.APIKey
	}

	return &Manager{
		cfg:      cfg,
		registry: registry,
		llm:      index.NewLLMClient(llmCfg),
		indexers: make(map[string]*index.Indexer),
		watchers: make(map[string]*index.Watcher),
	}
}

// Initialize loads all registered workspaces and starts their indexers.
func (m *Manager) Initialize() error {
	log := logger.GetLogger()

	for _, ws := range m.registry.List() {
		if err := m.initializeWorkspace(ws); err != nil {
			log.Warn().Err(err).Str("workspace_id", ws.ID).Str("path", ws.Path).Msg("Failed to initialize workspace")
		}
	}

	return nil
}

// initializeWorkspace initializes indexing for a single workspace.
func (m *Manager) initializeWorkspace(ws *Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := logger.GetLogger()

	if !fileutil.IsDir(ws.Path) {
		return fmt.Errorf("workspace path does not exist: %s", ws.Path)
	}

	// Index data lives under the service data dir, not inside the workspace.
	// The indexer walks the skills tree, not the whole project.
	indexCfg := index.DefaultConfig(ws.SkillsRoot())
	indexCfg.WorkspaceID = ws.ID
	indexCfg.IndexPath = m.cfg.WorkspaceIndexDir(ws.Path)

	idx, err := index.NewIndexer(indexCfg, m.llm)
	if err != nil {
		return fmt.Errorf("create indexer: %w", err)
	}

	m.indexers[ws.ID] = idx

	// First sight of this workspace, build the index now.
	if idx.Stats().DocumentCount == 0 {
		if err := idx.IndexAll(); err != nil {
			log.Warn().Err(err).Str("workspace_id", ws.ID).Msg("Failed to build index")
		}
	}

	watcher, err := index.NewWatcher(idx)
	if err != nil {
		log.Warn().Err(err).Str("workspace_id", ws.ID).Msg("Failed to create watcher")
		return nil
	}

	if err := watcher.Start(); err != nil {
		log.Warn().Err(err).Str("workspace_id", ws.ID).Msg("Failed to start watcher")
		return nil
	}

	m.watchers[ws.ID] = watcher
	return nil
}

// RegisterWorkspace registers a new workspace and initializes its index.
func (m *Manager) RegisterWorkspace(path string) (*Workspace, error) {
	absPath, err := filepath.Abs(fileutil.ExpandTilde(path))
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	if !fileutil.Exists(absPath) {
		return nil, fmt.Errorf("path does not exist: %s", absPath)
	}
	if !fileutil.IsDir(absPath) {
		return nil, fmt.Errorf("path is not a directory: %s", absPath)
	}

	if existing, _ := m.registry.GetByPath(absPath); existing != nil {
		return nil, fmt.Errorf("workspace already registered")
	}

	ws := &Workspace{
		ID:           config.WorkspaceHash(absPath),
		Path:         absPath,
		Name:         filepath.Base(absPath),
		RegisteredAt: time.Now(),
	}

	if err := m.registry.Add(ws); err != nil {
		return nil, err
	}

	if err := m.registry.Save(); err != nil {
		m.registry.Remove(ws.ID)
		return nil, fmt.Errorf("save registry: %w", err)
	}

	if err := m.initializeWorkspace(ws); err != nil {
		logger.GetLogger().Warn().Err(err).Str("workspace_id", ws.ID).Msg("Failed to initialize new workspace")
	}

	return ws, nil
}

// UnregisterWorkspace unregisters a workspace and stops its watcher. The
// index data directory is left on disk so re-registering is cheap.
func (m *Manager) UnregisterWorkspace(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if watcher, ok := m.watchers[id]; ok {
		watcher.Stop()
		delete(m.watchers, id)
	}

	delete(m.indexers, id)

	if err := m.registry.Remove(id); err != nil {
		return err
	}

	if err := m.registry.Save(); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}

	return nil
}

// GetIndexer returns the indexer for a workspace, or nil when the
// workspace is unknown.
func (m *Manager) GetIndexer(id string) *index.Indexer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexers[id]
}

// GetWatcher returns the file watcher for a workspace, or nil.
func (m *Manager) GetWatcher(id string) *index.Watcher {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.watchers[id]
}

// Shutdown stops every watcher. Indexers hold no resources that need
// teardown.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.watchers {
		w.Stop()
	}
	m.watchers = make(map[string]*index.Watcher)
}

// RebuildIndex re-walks a workspace's skill tree from scratch.
func (m *Manager) RebuildIndex(id string) error {
	idx := m.GetIndexer(id)
	if idx == nil {
		return fmt.Errorf("workspace not found: %s", id)
	}
	return idx.IndexAll()
}

// Stats returns index statistics for a workspace.
func (m *Manager) Stats(id string) (*index.Stats, error) {
	idx := m.GetIndexer(id)
	if idx == nil {
		return nil, fmt.Errorf("workspace not found: %s", id)
	}

	stats := idx.Stats()
	return &stats, nil
}
