package index

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// chunkStore is the always-available side of the index. It backs
// keyword search and stats, and survives restarts through a JSON
// snapshot, so search works before any embedding backend is
// configured.
type chunkStore struct {
	mu      sync.RWMutex
	files   map[string][]DocChunk // relative path -> chunks
	updated time.Time
	path    string // snapshot file, empty = memory only
}

type storeSnapshot struct {
	Files     map[string][]DocChunk `json:"files"`
	UpdatedAt time.Time             `json:"updated_at"`
}

func newChunkStore(path string) *chunkStore {
	return &chunkStore{
		files: make(map[string][]DocChunk),
		path:  path,
	}
}

// load restores the snapshot if one exists.
func (s *chunkStore) load() error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	var snap storeSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Files != nil {
		s.files = snap.Files
	}
	s.updated = snap.UpdatedAt
	return nil
}

// save writes the snapshot to disk.
func (s *chunkStore) save() error {
	if s.path == "" {
		return nil
	}

	s.mu.RLock()
	snap := storeSnapshot{Files: s.files, UpdatedAt: s.updated}
	data, err := json.Marshal(snap)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// replaceFile swaps all chunks for one file.
func (s *chunkStore) replaceFile(relPath string, chunks []DocChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(chunks) == 0 {
		delete(s.files, relPath)
	} else {
		s.files[relPath] = chunks
	}
	s.updated = time.Now()
}

// removeFile drops a file's chunks. Returns false if the file was not
// indexed.
func (s *chunkStore) removeFile(relPath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[relPath]; !ok {
		return false
	}
	delete(s.files, relPath)
	s.updated = time.Now()
	return true
}

// ids returns the chunk IDs currently stored for a file.
func (s *chunkStore) ids(relPath string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks := s.files[relPath]
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		ids = append(ids, c.ID)
	}
	return ids
}

// all returns a snapshot of every stored chunk.
func (s *chunkStore) all() []DocChunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []DocChunk
	for _, chunks := range s.files {
		out = append(out, chunks...)
	}
	return out
}

// clear drops everything.
func (s *chunkStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files = make(map[string][]DocChunk)
	s.updated = time.Now()
}

// stats summarizes the store contents.
func (s *chunkStore) stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	skills := make(map[string]struct{})
	docs := 0
	for _, chunks := range s.files {
		docs += len(chunks)
		for _, c := range chunks {
			if c.SkillName != "" {
				skills[c.SkillName] = struct{}{}
			}
		}
	}

	return Stats{
		DocumentCount: docs,
		FileCount:     len(s.files),
		SkillCount:    len(skills),
		LastUpdated:   s.updated,
	}
}
