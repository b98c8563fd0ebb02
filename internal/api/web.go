package api

import (
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ternarybob/skillet/index"
	"github.com/ternarybob/skillet/internal/fileutil"
	"github.com/ternarybob/skillet/pkg/diagram"
	"github.com/ternarybob/skillet/pkg/skill"
	"github.com/ternarybob/skillet/pkg/tool"
	"github.com/ternarybob/skillet/skills"
	"github.com/ternarybob/skillet/web"
)

// View models consumed by the embedded templates.
type (
	// WebIndexData is the data for the index page template.
	WebIndexData struct {
		Version string
	}

	// WebWorkspaceListData is the data for the workspace list partial.
	WebWorkspaceListData struct {
		Workspaces []WebWorkspaceData
	}

	// WebWorkspaceData is the data for a single workspace in templates.
	WebWorkspaceData struct {
		ID         string
		Name       string
		Path       string
		IndexStats *WebIndexStatsData
	}

	// WebIndexStatsData is the data for index stats in templates.
	WebIndexStatsData struct {
		DocumentCount int
		FileCount     int
		SkillCount    int
		LastUpdated   string
	}

	// WebSkillListData is the data for the skill list partial.
	WebSkillListData struct {
		Title  string
		Skills []WebSkillData
	}

	// WebSkillData is a single skill pack for templates.
	WebSkillData struct {
		Name        string
		Description string
		Version     string
		Triggers    string
		Path        string
	}

	// WebSearchResultsData is the data for the search results partial.
	WebSearchResultsData struct {
		Query   string
		Total   int
		Results []WebSearchResultItem
	}

	// WebSearchResultItem is a single search result for templates.
	WebSearchResultItem struct {
		SkillName string
		Heading   string
		FilePath  string
		StartLine int
		EndLine   int
		Percent   int
		Excerpt   string
	}
)

func (s *Server) handleWebRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/web/", http.StatusFound)
}

func (s *Server) handleWebAssets(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/web")
	if path == "" || path == "/" {
		renderTemplate(w, "index.html", WebIndexData{Version: version})
		return
	}
	if strings.HasPrefix(path, "/static/") {
		s.serveStaticFile(w, r, path)
		return
	}

	switch {
	case strings.HasPrefix(path, "/workspace/"):
		s.renderWorkspacePage(w, r, strings.TrimPrefix(path, "/workspace/"))
	case path == "/library":
		s.renderLibraryPage(w, r)
	default:
		http.NotFound(w, r)
	}
}

// renderTemplate executes one embedded template as the whole response.
func renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	tmpl, err := template.ParseFS(web.Templates, "templates/"+name)
	if err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	if err := tmpl.Execute(w, data); err != nil {
		http.Error(w, "Template execution error: "+err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) serveStaticFile(w http.ResponseWriter, r *http.Request, path string) {
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	switch filepath.Ext(path) {
	case ".css":
		w.Header().Set("Content-Type", "text/css")
	case ".js":
		w.Header().Set("Content-Type", "application/javascript")
	case ".svg":
		w.Header().Set("Content-Type", "image/svg+xml")
	}

	name := strings.TrimPrefix(strings.TrimPrefix(path, "/"), "static/")
	data, err := fs.ReadFile(staticFS, name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Write(data)
}

func (s *Server) renderWorkspacePage(w http.ResponseWriter, r *http.Request, workspaceID string) {
	ws, err := s.registry.Get(workspaceID)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	data := WebWorkspaceData{
		ID:   ws.ID,
		Name: ws.Name,
		Path: ws.Path,
	}
	if idx := s.manager.GetIndexer(workspaceID); idx != nil {
		data.IndexStats = webStats(idx.Stats())
	}

	renderTemplate(w, "workspace.html", data)
}

func (s *Server) renderLibraryPage(w http.ResponseWriter, r *http.Request) {
	packs, err := skills.ReadAll()
	if err != nil {
		http.Error(w, "Library error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	data := WebSkillListData{Title: "Bundled Skill Library"}
	for _, p := range packs {
		data.Skills = append(data.Skills, webSkill(p))
	}

	renderTemplate(w, "library.html", data)
}

// handleWorkspacesList returns the workspace list as an HTML partial for HTMX.
func (s *Server) handleWorkspacesList(w http.ResponseWriter, r *http.Request) {
	workspaces := s.registry.List()
	data := WebWorkspaceListData{
		Workspaces: make([]WebWorkspaceData, 0, len(workspaces)),
	}

	for _, ws := range workspaces {
		wd := WebWorkspaceData{
			ID:   ws.ID,
			Name: ws.Name,
			Path: ws.Path,
		}
		if idx := s.manager.GetIndexer(ws.ID); idx != nil {
			wd.IndexStats = webStats(idx.Stats())
		}
		data.Workspaces = append(data.Workspaces, wd)
	}

	renderTemplate(w, "workspace-list.html", data)
}

// handleWebRegisterWorkspace handles workspace registration from the web form.
func (s *Server) handleWebRegisterWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writePartialMessage(w, "Invalid form data")
		return
	}

	path := r.FormValue("path")
	if path == "" {
		writePartialMessage(w, "Path is required")
		return
	}

	if _, err := s.manager.RegisterWorkspace(path); err != nil {
		writePartialMessage(w, "Error: "+err.Error())
		return
	}

	// Return updated workspace list
	s.handleWorkspacesList(w, r)
}

// handleWebSkillList returns a workspace's skills as an HTML partial.
func (s *Server) handleWebSkillList(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ws, err := s.registry.Get(id)
	if err != nil {
		writePartialMessage(w, "Workspace not found")
		return
	}

	packs, err := skill.LoadAll(ws.SkillsRoot())
	if err != nil {
		writePartialMessage(w, "Error: "+err.Error())
		return
	}

	data := WebSkillListData{Title: "Skills"}
	for _, p := range packs {
		data.Skills = append(data.Skills, webSkill(p))
	}

	renderTemplate(w, "skill-list.html", data)
}

// handleWebSearch handles search from the web UI and returns an HTML partial.
func (s *Server) handleWebSearch(w http.ResponseWriter, r *http.Request) {
	idx := s.manager.GetIndexer(chi.URLParam(r, "id"))
	if idx == nil {
		writePartialMessage(w, "Workspace not found or indexer not available")
		return
	}

	if err := r.ParseForm(); err != nil {
		writePartialMessage(w, "Invalid form data")
		return
	}

	query := r.FormValue("query")
	if query == "" {
		writePartialMessage(w, "Enter a search query to find skill documentation.")
		return
	}

	results, err := index.NewSearcher(idx).Search(r.Context(), index.SearchOptions{
		Query:     query,
		Limit:     20,
		SkillName: r.FormValue("skill"),
	})
	if err != nil {
		writePartialMessage(w, "Search failed: "+err.Error())
		return
	}

	items := make([]WebSearchResultItem, 0, len(results))
	for _, res := range results {
		heading := res.Chunk.Heading
		if heading == "" {
			heading = filepath.Base(res.Chunk.FilePath)
		}
		items = append(items, WebSearchResultItem{
			SkillName: res.Chunk.SkillName,
			Heading:   heading,
			FilePath:  res.Chunk.FilePath,
			StartLine: res.Chunk.StartLine,
			EndLine:   res.Chunk.EndLine,
			Percent:   int(res.Score * 100),
			Excerpt:   excerpt(res.Chunk.Content, 240),
		})
	}

	renderTemplate(w, "search-results.html", WebSearchResultsData{Query: query, Total: len(results), Results: items})
}

// handleWebReindex handles index rebuild from the web UI.
func (s *Server) handleWebReindex(w http.ResponseWriter, r *http.Request) {
	idx := s.manager.GetIndexer(chi.URLParam(r, "id"))
	if idx == nil {
		writeStatusSpan(w, "warning", "Indexer not available")
		return
	}

	if err := idx.IndexAll(); err != nil {
		writeStatusSpan(w, "error", "Error: "+err.Error())
		return
	}

	stats := idx.Stats()

	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(`<div class="workspace-stat">
    <strong>` + strconv.Itoa(stats.DocumentCount) + `</strong> documents
</div>
<div class="workspace-stat">
    <strong>` + strconv.Itoa(stats.FileCount) + `</strong> files
</div>
<div class="workspace-stat">
    <strong>` + strconv.Itoa(stats.SkillCount) + `</strong> skills
</div>
<div class="workspace-stat">
    Last updated: ` + stats.LastUpdated.Format("Jan 2, 2006 3:04 PM") + `
</div>`))
}

// handleWebUnregisterWorkspace handles workspace removal from the web UI.
func (s *Server) handleWebUnregisterWorkspace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.manager.UnregisterWorkspace(id); err != nil {
		writePartialMessage(w, "Error: "+err.Error())
		return
	}

	// Empty response; the element is removed by hx-swap="outerHTML"
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
}

// handleWebRender renders a diagram directory from the web UI. Relative
// directories are resolved against the workspace path.
func (s *Server) handleWebRender(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ws, err := s.registry.Get(id)
	if err != nil {
		writePartialMessage(w, "Workspace not found")
		return
	}

	if err := r.ParseForm(); err != nil {
		writePartialMessage(w, "Invalid form data")
		return
	}

	dir := r.FormValue("dir")
	if dir == "" {
		dir = diagram.DefaultDir
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(ws.Path, dir)
	}
	if !fileutil.IsDir(dir) {
		writePartialMessage(w, "Diagram directory not found: "+dir)
		return
	}

	render, ok := s.tools.Get("render-diagrams")
	if !ok {
		writePartialMessage(w, "Render tool not available")
		return
	}

	opts := s.cfg.Render.Options()
	result, err := render.Run(r.Context(), tool.Args{
		"dir":        dir,
		"width":      opts.Width,
		"height":     opts.Height,
		"scale":      opts.Scale,
		"background": opts.Background,
	})
	if err != nil {
		writePartialMessage(w, "Render failed: "+err.Error())
		return
	}

	dot := "success"
	if !result.IsSuccess() {
		dot = "warning"
	}
	writeStatusSpan(w, dot, result.Message)
}

// Helpers

// writeStatusSpan answers an HTMX swap with a status pill.
func writeStatusSpan(w http.ResponseWriter, dot, msg string) {
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(`<span class="status"><span class="status-dot ` + dot + `"></span>` +
		template.HTMLEscapeString(msg) + `</span>`))
}

func webStats(stats index.Stats) *WebIndexStatsData {
	return &WebIndexStatsData{
		DocumentCount: stats.DocumentCount,
		FileCount:     stats.FileCount,
		SkillCount:    stats.SkillCount,
		LastUpdated:   stats.LastUpdated.Format("Jan 2, 2006 3:04 PM"),
	}
}

func webSkill(p *skill.Skill) WebSkillData {
	return WebSkillData{
		Name:        p.Name,
		Description: p.Description,
		Version:     p.Version,
		Triggers:    strings.Join(p.TriggerList(), ", "),
		Path:        filepath.ToSlash(p.Path),
	}
}

func writePartialMessage(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(`<div class="empty-state"><p>` + template.HTMLEscapeString(msg) + `</p></div>`))
}

// excerpt collapses whitespace and truncates content for list display.
func excerpt(content string, max int) string {
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && strings.HasPrefix(lines[0], "#") {
		lines = lines[1:]
	}

	flat := strings.Join(strings.Fields(strings.Join(lines, " ")), " ")
	runes := []rune(flat)
	if len(runes) <= max {
		return flat
	}
	return string(runes[:max]) + "..."
}
