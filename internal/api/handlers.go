package api

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ternarybob/skillet/index"
	"github.com/ternarybob/skillet/internal/fileutil"
	"github.com/ternarybob/skillet/pkg/diagram"
	"github.com/ternarybob/skillet/pkg/javadeps"
	"github.com/ternarybob/skillet/pkg/skill"
	"github.com/ternarybob/skillet/skills"
)

// version defaults to dev; release builds override it with -ldflags.
var version = "dev"

// SetVersion records the build version reported by /version. main calls
// it before the server starts.
func SetVersion(v string) {
	version = v
}

// HealthResponse answers GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// VersionResponse answers GET /version.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// ErrorResponse is the error shape every endpoint returns.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WorkspaceResponse represents a workspace in API responses.
type WorkspaceResponse struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Path         string              `json:"path"`
	RegisteredAt string              `json:"registered_at"`
	IndexStats   *IndexStatsResponse `json:"index_stats,omitempty"`
}

// IndexStatsResponse summarizes a workspace index.
type IndexStatsResponse struct {
	DocumentCount int    `json:"document_count"`
	FileCount     int    `json:"file_count"`
	SkillCount    int    `json:"skill_count"`
	LastUpdated   string `json:"last_updated"`
}

// RegisterWorkspaceRequest is the request body for registering a workspace.
type RegisterWorkspaceRequest struct {
	Path string `json:"path"`
}

// SearchRequest is the body for POST /workspaces/{id}/search.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
	Skill string `json:"skill,omitempty"`
	Path  string `json:"path,omitempty"`
}

// SearchResponse carries the ranked results for one query.
type SearchResponse struct {
	Query   string             `json:"query"`
	Total   int                `json:"total"`
	Results []SearchResultItem `json:"results"`
}

// SearchResultItem is one matched section with its source position.
type SearchResultItem struct {
	SkillName string  `json:"skill_name"`
	FilePath  string  `json:"file_path"`
	Heading   string  `json:"heading"`
	Level     int     `json:"level"`
	Content   string  `json:"content"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Score     float32 `json:"score"`
}

// SkillSummary lists one skill pack in API responses.
type SkillSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Version     string   `json:"version,omitempty"`
	Triggers    []string `json:"triggers,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Path        string   `json:"path,omitempty"`
}

// SkillDetail is the full view of one skill pack.
type SkillDetail struct {
	SkillSummary
	Author       string `json:"author,omitempty"`
	License      string `json:"license,omitempty"`
	Instructions string `json:"instructions"`
	Raw          string `json:"raw"`
}

// RenderRequest is the request body for POST /render. Numeric fields are
// strings because they are passed to the mermaid CLI verbatim.
type RenderRequest struct {
	Dir        string `json:"dir,omitempty"`
	Width      string `json:"width,omitempty"`
	Height     string `json:"height,omitempty"`
	Scale      string `json:"scale,omitempty"`
	Background string `json:"background,omitempty"`
}

// AnalyzeJavaRequest is the request body for POST /analyze/java.
type AnalyzeJavaRequest struct {
	ProjectDir    string `json:"project_dir"`
	TargetVersion string `json:"target_version"`
	SourceVersion string `json:"source_version,omitempty"`
}

// AnalyzeJavaResponse wraps the analyzer result.
type AnalyzeJavaResponse struct {
	HasIssues bool             `json:"has_issues"`
	Result    *javadeps.Result `json:"result"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: version, Service: "skillet-service"})
}

func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces := s.registry.List()
	response := make([]WorkspaceResponse, 0, len(workspaces))

	for _, ws := range workspaces {
		response = append(response, s.workspaceResponse(ws.ID))
	}

	writeJSON(w, http.StatusOK, response)
}

// tsLayout is the timestamp format used across API responses.
const tsLayout = "2006-01-02T15:04:05Z"

// workspaceResponse builds the API view of one registered workspace.
func (s *Server) workspaceResponse(id string) WorkspaceResponse {
	ws, err := s.registry.Get(id)
	if err != nil {
		return WorkspaceResponse{ID: id}
	}

	wr := WorkspaceResponse{
		ID:           ws.ID,
		Name:         ws.Name,
		Path:         ws.Path,
		RegisteredAt: ws.RegisteredAt.Format(tsLayout),
	}

	if idx := s.manager.GetIndexer(ws.ID); idx != nil {
		st := indexStatsResponse(idx.Stats())
		wr.IndexStats = &st
	}

	return wr
}

// indexStatsResponse converts indexer stats to their API shape.
func indexStatsResponse(stats index.Stats) IndexStatsResponse {
	return IndexStatsResponse{
		DocumentCount: stats.DocumentCount,
		FileCount:     stats.FileCount,
		SkillCount:    stats.SkillCount,
		LastUpdated:   stats.LastUpdated.Format(tsLayout),
	}
}

func (s *Server) handleRegisterWorkspace(w http.ResponseWriter, r *http.Request) {
	var req RegisterWorkspaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "Path is required")
		return
	}

	ws, err := s.manager.RegisterWorkspace(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, s.workspaceResponse(ws.ID))
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.registry.Get(id); err != nil {
		writeError(w, http.StatusNotFound, "Workspace not found")
		return
	}

	writeJSON(w, http.StatusOK, s.workspaceResponse(id))
}

func (s *Server) handleUnregisterWorkspace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.manager.UnregisterWorkspace(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRebuildIndex(w http.ResponseWriter, r *http.Request) {
	idx := s.indexerFor(w, r)
	if idx == nil {
		return
	}

	if err := idx.IndexAll(); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to rebuild index: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, indexStatsResponse(idx.Stats()))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	idx := s.indexerFor(w, r)
	if idx == nil {
		return
	}

	var req SearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 10
	}

	searcher := index.NewSearcher(idx)
	results, err := searcher.Search(r.Context(), index.SearchOptions{
		Query:     req.Query,
		Limit:     req.Limit,
		SkillName: req.Skill,
		FilePath:  req.Path,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Search failed: "+err.Error())
		return
	}

	items := make([]SearchResultItem, 0, len(results))
	for _, res := range results {
		items = append(items, SearchResultItem{
			SkillName: res.Chunk.SkillName,
			FilePath:  res.Chunk.FilePath,
			Heading:   res.Chunk.Heading,
			Level:     res.Chunk.Level,
			Content:   res.Chunk.Content,
			StartLine: res.Chunk.StartLine,
			EndLine:   res.Chunk.EndLine,
			Score:     res.Score,
		})
	}

	writeJSON(w, http.StatusOK, SearchResponse{Query: req.Query, Total: len(results), Results: items})
}

func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ws, err := s.registry.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Workspace not found")
		return
	}

	packs, err := skill.LoadAll(ws.SkillsRoot())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Load skills: "+err.Error())
		return
	}

	response := make([]SkillSummary, 0, len(packs))
	for _, p := range packs {
		response = append(response, skillSummary(p))
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetSkill(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := chi.URLParam(r, "name")

	ws, err := s.registry.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Workspace not found")
		return
	}

	packs, err := skill.LoadAll(ws.SkillsRoot())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Load skills: "+err.Error())
		return
	}

	for _, p := range packs {
		if strings.EqualFold(p.Name, name) {
			writeJSON(w, http.StatusOK, SkillDetail{
				SkillSummary: skillSummary(p),
				Author:       p.Author,
				License:      p.License,
				Instructions: p.Instructions,
				Raw:          p.Raw,
			})
			return
		}
	}

	writeError(w, http.StatusNotFound, "Skill not found: "+name)
}

func (s *Server) handleLibrary(w http.ResponseWriter, r *http.Request) {
	packs, err := skills.ReadAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Read bundled skills: "+err.Error())
		return
	}

	response := make([]SkillSummary, 0, len(packs))
	for _, p := range packs {
		response = append(response, skillSummary(p))
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handlePalette(w http.ResponseWriter, r *http.Request) {
	palette, err := skills.Palette()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Load palette: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, palette)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	dir := req.Dir
	if dir == "" {
		dir = diagram.DefaultDir
	}
	if !fileutil.IsDir(dir) {
		writeError(w, http.StatusBadRequest, "Diagram directory not found: "+dir)
		return
	}

	// Config-level render defaults, overridden per request
	opts := s.cfg.Render.Options()
	if req.Width != "" {
		opts.Width = req.Width
	}
	if req.Height != "" {
		opts.Height = req.Height
	}
	if req.Scale != "" {
		opts.Scale = req.Scale
	}
	if req.Background != "" {
		opts.Background = req.Background
	}

	renderer := diagram.NewRenderer(opts)
	renderer.SetOutput(io.Discard)
	summary, err := renderer.RenderDir(r.Context(), dir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Render failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleAnalyzeJava(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeJavaRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.TargetVersion == "" {
		writeError(w, http.StatusBadRequest, "target_version is required")
		return
	}
	if req.ProjectDir == "" {
		writeError(w, http.StatusBadRequest, "project_dir is required")
		return
	}
	if !fileutil.IsDir(req.ProjectDir) {
		writeError(w, http.StatusBadRequest, "Project directory not found: "+req.ProjectDir)
		return
	}

	analyzer := javadeps.New(req.ProjectDir, req.TargetVersion)
	analyzer.SourceVersion = req.SourceVersion

	result, err := analyzer.Analyze()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Analysis failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, AnalyzeJavaResponse{
		HasIssues: result.HasIssues(),
		Result:    result,
	})
}

// Helper functions

func skillSummary(p *skill.Skill) SkillSummary {
	return SkillSummary{
		Name:        p.Name,
		Description: p.Description,
		Version:     p.Version,
		Triggers:    p.TriggerList(),
		Tags:        p.Tags,
		Path:        filepath.ToSlash(p.Path),
	}
}

// indexerFor resolves the {id} route param to a live indexer, answering
// 404 when the workspace is unknown or not yet indexed.
func (s *Server) indexerFor(w http.ResponseWriter, r *http.Request) *index.Indexer {
	idx := s.manager.GetIndexer(chi.URLParam(r, "id"))
	if idx == nil {
		writeError(w, http.StatusNotFound, "Workspace not found or indexer not available")
	}
	return idx
}

// decodeJSON parses the request body into v, answering 400 on bad input.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
