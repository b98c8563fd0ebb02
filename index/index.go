package index

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"
)

const collectionName = "skill-docs"

// Indexer builds and maintains the document index for one workspace.
type Indexer struct {
	cfg    Config
	parser *Parser
	store  *chunkStore
	llm    *LLMClient

	db  *chromem.DB
	col *chromem.Collection
	mu  sync.RWMutex
}

// NewIndexer creates an Indexer for the workspace described by cfg.
// When llm carries an API key, chunks are additionally embedded into a
// persistent chromem collection under IndexPath; without one the index
// is keyword-only.
func NewIndexer(cfg Config, llm *LLMClient) (*Indexer, error) {
	if cfg.WorkspacePath == "" {
		return nil, fmt.Errorf("workspace path is required")
	}

	abs, err := filepath.Abs(cfg.WorkspacePath)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace path: %w", err)
	}
	cfg.WorkspacePath = abs

	if cfg.IndexPath == "" {
		cfg.IndexPath = filepath.Join(abs, ".skillet", "index")
	}
	if cfg.DebounceMs <= 0 {
		cfg.DebounceMs = 500
	}

	if err := os.MkdirAll(cfg.IndexPath, 0755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	idx := &Indexer{
		cfg:    cfg,
		parser: NewParser(abs),
		store:  newChunkStore(filepath.Join(cfg.IndexPath, "chunks.json")),
		llm:    llm,
	}

	if err := idx.store.load(); err != nil {
		return nil, fmt.Errorf("load chunk store: %w", err)
	}

	if llm.IsConfigured() {
		db, err := chromem.NewPersistentDB(filepath.Join(cfg.IndexPath, "vectors"), false)
		if err != nil {
			return nil, fmt.Errorf("open vector store: %w", err)
		}
		col, err := db.GetOrCreateCollection(collectionName, nil, llm.Embed)
		if err != nil {
			return nil, fmt.Errorf("open collection: %w", err)
		}
		idx.db = db
		idx.col = col
	}

	return idx, nil
}

// GetConfig returns the indexer configuration.
func (idx *Indexer) GetConfig() Config {
	return idx.cfg
}

// GetCollection returns the chromem collection, or nil when no
// embedding backend is configured.
func (idx *Indexer) GetCollection() *chromem.Collection {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.col
}

// HasEmbeddings reports whether semantic search is available.
func (idx *Indexer) HasEmbeddings() bool {
	return idx.GetCollection() != nil
}

// Chunks returns a snapshot of every indexed chunk.
func (idx *Indexer) Chunks() []DocChunk {
	return idx.store.all()
}

// Stats returns index statistics.
func (idx *Indexer) Stats() Stats {
	return idx.store.stats()
}

// IndexAll walks the workspace and rebuilds the index from scratch.
// Files that fail to parse are skipped with a warning so one bad pack
// cannot block the rest.
func (idx *Indexer) IndexAll() error {
	ctx := context.Background()

	idx.store.clear()

	if idx.db != nil {
		if err := idx.db.DeleteCollection(collectionName); err != nil {
			return fmt.Errorf("reset collection: %w", err)
		}
		col, err := idx.db.GetOrCreateCollection(collectionName, nil, idx.llm.Embed)
		if err != nil {
			return fmt.Errorf("recreate collection: %w", err)
		}
		idx.mu.Lock()
		idx.col = col
		idx.mu.Unlock()
	}

	root := idx.cfg.WorkspacePath
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, rerr := filepath.Rel(root, p)
		if rerr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || idx.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), ".md") || idx.excluded(rel) {
			return nil
		}

		if ierr := idx.indexFile(ctx, p); ierr != nil {
			fmt.Fprintf(os.Stderr, "warning: index %s: %v\n", rel, ierr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk workspace: %w", err)
	}

	return idx.store.save()
}

// IndexFile parses one markdown file and replaces its index entries.
func (idx *Indexer) IndexFile(path string) error {
	if err := idx.indexFile(context.Background(), path); err != nil {
		return err
	}
	return idx.store.save()
}

// RemoveFile drops a deleted file's entries from the index.
func (idx *Indexer) RemoveFile(path string) error {
	rel := idx.relPath(path)
	ids := idx.store.ids(rel)

	if !idx.store.removeFile(rel) {
		return nil
	}

	if col := idx.GetCollection(); col != nil && len(ids) > 0 {
		if err := col.Delete(context.Background(), nil, nil, ids...); err != nil {
			return fmt.Errorf("drop documents: %w", err)
		}
	}

	return idx.store.save()
}

func (idx *Indexer) indexFile(ctx context.Context, path string) error {
	chunks, err := idx.parser.ParseFile(path)
	if err != nil {
		return err
	}

	rel := idx.relPath(path)
	stale := idx.store.ids(rel)
	idx.store.replaceFile(rel, chunks)

	col := idx.GetCollection()
	if col == nil {
		return nil
	}

	if len(stale) > 0 {
		if err := col.Delete(ctx, nil, nil, stale...); err != nil {
			return fmt.Errorf("drop stale documents: %w", err)
		}
	}

	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, chromem.Document{
			ID:       c.ID,
			Metadata: c.ToMetadata(),
			Content:  c.Content,
		})
	}
	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}

	return nil
}

// relPath converts an absolute path to a slash-separated path relative
// to the workspace root.
func (idx *Indexer) relPath(p string) string {
	rel, err := filepath.Rel(idx.cfg.WorkspacePath, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

// excluded reports whether a workspace-relative path matches an
// exclude glob. A trailing "/**" matches the directory and everything
// under it.
func (idx *Indexer) excluded(rel string) bool {
	for _, glob := range idx.cfg.ExcludeGlobs {
		if base, ok := strings.CutSuffix(glob, "/**"); ok {
			if rel == base || strings.HasPrefix(rel, base+"/") {
				return true
			}
			continue
		}
		if ok, _ := path.Match(glob, rel); ok {
			return true
		}
		if ok, _ := path.Match(glob, path.Base(rel)); ok {
			return true
		}
	}
	return false
}
