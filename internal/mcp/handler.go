// Package mcp implements the Model Context Protocol (MCP) server for skillet-service.
// MCP allows AI assistants like Claude to use skillet-service as a tool provider.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/skillet/index"
	"github.com/ternarybob/skillet/internal/config"
	"github.com/ternarybob/skillet/internal/workspace"
	"github.com/ternarybob/skillet/pkg/skill"
	"github.com/ternarybob/skillet/pkg/tool"
	"github.com/ternarybob/skillet/skills"
)

// JSON-RPC 2.0 envelopes. Every field name here and in the MCP schema
// types below is fixed by the protocol.
type (
	Request struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      interface{}     `json:"id,omitempty"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}

	Response struct {
		JSONRPC string      `json:"jsonrpc"`
		ID      interface{} `json:"id,omitempty"`
		Result  interface{} `json:"result,omitempty"`
		Error   *RPCError   `json:"error,omitempty"`
	}

	// RPCError is the error member of a failed response.
	RPCError struct {
		Code    int         `json:"code"`
		Message string      `json:"message"`
		Data    interface{} `json:"data,omitempty"`
	}
)

// MCP schema types, exchanged during the initialize handshake and the
// tools methods.
type (
	// ServerInfo identifies this server to the client.
	ServerInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}

	InitializeResult struct {
		ProtocolVersion string             `json:"protocolVersion"`
		Capabilities    ServerCapabilities `json:"capabilities"`
		ServerInfo      ServerInfo         `json:"serverInfo"`
	}

	ServerCapabilities struct {
		Tools *ToolsCapability `json:"tools,omitempty"`
	}

	ToolsCapability struct {
		ListChanged bool `json:"listChanged,omitempty"`
	}

	// Tool describes one callable tool in the tools/list reply.
	Tool struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		InputSchema json.RawMessage `json:"inputSchema"`
	}

	ToolsListResult struct {
		Tools []Tool `json:"tools"`
	}

	// CallToolParams are the arguments of a tools/call request.
	CallToolParams struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	}

	// ToolResult is what a tool call returns: text blocks plus an error flag.
	ToolResult struct {
		Content []ContentBlock `json:"content"`
		IsError bool           `json:"isError,omitempty"`
	}

	ContentBlock struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
)

// Handler serves the MCP protocol over HTTP for all registered workspaces.
type Handler struct {
	cfg      *config.Config
	registry *workspace.Registry
	manager  *workspace.Manager
	tools    *tool.Registry
	mu       sync.RWMutex
}

// NewHandler creates a new MCP handler. The tool registry backs the
// render_diagrams and analyze_java_deps tools; nil falls back to the
// bundled set.
func NewHandler(cfg *config.Config, registry *workspace.Registry, manager *workspace.Manager, tools *tool.Registry) *Handler {
	if tools == nil {
		tools = tool.DefaultRegistry()
	}
	return &Handler{
		cfg:      cfg,
		manager:  manager,
		registry: registry,
		tools:    tools,
	}
}

// ServeHTTP dispatches between the SSE transport and plain JSON-RPC POSTs.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/sse"):
		h.handleSSE(w, r)
	case r.Method == http.MethodPost:
		h.handleJSONRPC(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// decodeRequest reads and parses one JSON-RPC request body.
func decodeRequest(body io.Reader) (*Request, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// handleJSONRPC answers a single JSON-RPC request posted directly to /mcp.
func (h *Handler) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r.Body)
	if err != nil {
		writeResponse(w, errorResponse(nil, -32700, "Parse error"))
		return
	}
	writeResponse(w, h.handleRequest(req))
}

// handleSSE implements the SSE transport. A GET opens the event stream
// and announces the endpoint; the client then POSTs messages to it.
func (h *Handler) handleSSE(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleSSEConnect(w, r)
	case http.MethodPost:
		h.handleSSEMessage(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSSEConnect opens the stream and emits the endpoint event that
// tells the client where to POST.
func (h *Handler) handleSSEConnect(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Access-Control-Allow-Origin", "*")
	hdr.Set("Connection", "keep-alive")

	// POSTs go back to the same /sse path
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	fmt.Fprintf(w, "event: endpoint\ndata: %s://%s/mcp/sse\n\n", scheme, r.Host)
	flusher.Flush()

	// Hold the stream open, pinging so proxies don't drop it.
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ping.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// handleSSEMessage runs a JSON-RPC message posted on the SSE channel.
func (h *Handler) handleSSEMessage(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r.Body)
	if err != nil {
		writeResponse(w, errorResponse(nil, -32700, "Parse error"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	// reply framed as an SSE message event
	data, _ := json.Marshal(h.handleRequest(req))
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
}

// okResponse and errorResponse frame JSON-RPC replies.
func okResponse(id interface{}, result interface{}) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id interface{}, code int, message string) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}

// handleRequest routes one decoded request to its method handler.
func (h *Handler) handleRequest(req *Request) *Response {
	switch req.Method {
	case "initialize":
		return h.handleInitialize(req.ID)
	case "initialized", "ping":
		// the initialized notification and liveness pings both get an
		// empty result
		return okResponse(req.ID, map[string]interface{}{})
	case "tools/list":
		return h.handleToolsList(req.ID)
	case "tools/call":
		return h.handleToolsCall(req.ID, req.Params)
	default:
		return errorResponse(req.ID, -32601, "Method not found")
	}
}

func (h *Handler) handleInitialize(id interface{}) *Response {
	return okResponse(id, InitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{ListChanged: false},
		},
		ServerInfo: ServerInfo{
			Name:    "skillet-service",
			Version: "1.0.0",
		},
	})
}

// Input schemas shared by tools that take no arguments or only a
// workspace ID.
var (
	emptySchema = json.RawMessage(`{"type": "object", "properties": {}, "required": []}`)

	workspaceIDSchema = json.RawMessage(`{
	  "type": "object",
	  "properties": {
	    "workspace_id": {"type": "string", "description": "Workspace ID"}
	  },
	  "required": ["workspace_id"]
	}`)
)

func (h *Handler) handleToolsList(id interface{}) *Response {
	tools := []Tool{
		{
			Name:        "list_workspaces",
			Description: "List all workspaces registered with skillet-service",
			InputSchema: emptySchema,
		},
		{
			Name:        "search_skills",
			Description: "Search skill documentation (instructions, conventions, palette entries, templates) across registered workspaces",
			InputSchema: json.RawMessage(`{
			  "type": "object",
			  "properties": {
			    "query": {"type": "string", "description": "Natural language or keyword query"},
			    "workspace_id": {"type": "string", "description": "Optional workspace ID to search within; all workspaces when omitted"},
			    "skill": {"type": "string", "description": "Optional skill pack name to restrict results to"},
			    "limit": {"type": "number", "description": "Maximum results per workspace (default 10)"}
			  },
			  "required": ["query"]
			}`),
		},
		{
			Name:        "read_skill",
			Description: "Read the full SKILL.md of one skill pack, front matter included",
			InputSchema: json.RawMessage(`{
			  "type": "object",
			  "properties": {
			    "workspace_id": {"type": "string", "description": "Workspace ID"},
			    "name": {"type": "string", "description": "Skill pack name"}
			  },
			  "required": ["workspace_id", "name"]
			}`),
		},
		{
			Name:        "list_skills",
			Description: "List the skill packs in a workspace with their descriptions and triggers",
			InputSchema: workspaceIDSchema,
		},
		{
			Name:        "render_diagrams",
			Description: "Render Mermaid .mmd sources in a directory to PNG images",
			InputSchema: json.RawMessage(`{
			  "type": "object",
			  "properties": {
			    "workspace_id": {"type": "string", "description": "Optional workspace ID; relative dir is resolved against its path"},
			    "dir": {"type": "string", "description": "Diagram directory (default docs/diagrams)"},
			    "width": {"type": "string", "description": "Output width in pixels"},
			    "height": {"type": "string", "description": "Output height in pixels"}
			  },
			  "required": []
			}`),
		},
		{
			Name:        "analyze_java_deps",
			Description: "Analyze a Maven or Gradle project's dependencies for Java version compatibility",
			InputSchema: json.RawMessage(`{
			  "type": "object",
			  "properties": {
			    "project_dir": {"type": "string", "description": "Java project directory"},
			    "target_version": {"type": "string", "description": "Target Java version, e.g. 21"},
			    "source_version": {"type": "string", "description": "Optional source Java version override"}
			  },
			  "required": ["target_version"]
			}`),
		},
		{
			Name:        "get_palette",
			Description: "Get the approved diagram color palette bundled with the diagram-style skill",
			InputSchema: emptySchema,
		},
		{
			Name:        "stats",
			Description: "Get index statistics for a workspace: document, file and skill counts",
			InputSchema: workspaceIDSchema,
		},
		{
			Name:        "reindex",
			Description: "Rebuild a workspace's index from scratch",
			InputSchema: workspaceIDSchema,
		},
	}

	return okResponse(id, ToolsListResult{Tools: tools})
}

func (h *Handler) handleToolsCall(id interface{}, raw json.RawMessage) *Response {
	var params CallToolParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	var result ToolResult

	switch params.Name {
	case "list_workspaces":
		result = h.callListWorkspaces()
	case "search_skills":
		query, _ := params.Arguments["query"].(string)
		workspaceID, _ := params.Arguments["workspace_id"].(string)
		skillName, _ := params.Arguments["skill"].(string)
		limit := intArg(params.Arguments, "limit", 10)
		result = h.callSearchSkills(query, workspaceID, skillName, limit)
	case "read_skill":
		workspaceID, _ := params.Arguments["workspace_id"].(string)
		name, _ := params.Arguments["name"].(string)
		result = h.callReadSkill(workspaceID, name)
	case "list_skills":
		workspaceID, _ := params.Arguments["workspace_id"].(string)
		result = h.callListSkills(workspaceID)
	case "render_diagrams":
		result = h.callRenderDiagrams(params.Arguments)
	case "analyze_java_deps":
		result = h.callAnalyzeJavaDeps(params.Arguments)
	case "get_palette":
		result = h.callGetPalette()
	case "stats":
		workspaceID, _ := params.Arguments["workspace_id"].(string)
		result = h.callStats(workspaceID)
	case "reindex":
		workspaceID, _ := params.Arguments["workspace_id"].(string)
		result = h.callReindex(workspaceID)
	default:
		result = errResult("Unknown tool: %s", params.Name)
	}

	return okResponse(id, result)
}

func (h *Handler) callListWorkspaces() ToolResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	workspaces := h.registry.List()
	if len(workspaces) == 0 {
		return textResult("No workspaces registered.")
	}

	var sb strings.Builder
	sb.WriteString("Registered workspaces:\n\n")
	for _, ws := range workspaces {
		sb.WriteString(fmt.Sprintf("- **%s** (ID: %s)\n  Path: %s\n  Registered: %s\n\n",
			ws.Name, ws.ID, ws.Path, ws.RegisteredAt.Format(time.RFC3339)))
	}

	return textResult(sb.String())
}

func (h *Handler) callSearchSkills(query, workspaceID, skillName string, limit int) ToolResult {
	if query == "" {
		return errResult("Error: query is required")
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	// If workspace ID specified, search that workspace
	if workspaceID != "" {
		ws, err := h.registry.Get(workspaceID)
		if err != nil || ws == nil {
			return errResult("Workspace not found: %s", workspaceID)
		}
		return h.searchWorkspace(ws.ID, query, skillName, limit)
	}

	// Search all workspaces
	workspaces := h.registry.List()
	if len(workspaces) == 0 {
		return textResult("No workspaces registered.")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Search results for '%s':\n\n", query))

	for _, ws := range workspaces {
		results := h.searchWorkspace(ws.ID, query, skillName, limit)
		if !results.IsError && len(results.Content) > 0 &&
			results.Content[0].Text != "No matching skill documentation found.\n" {
			sb.WriteString(fmt.Sprintf("## %s\n%s\n", ws.Name, results.Content[0].Text))
		}
	}

	return textResult(sb.String())
}

func (h *Handler) searchWorkspace(workspaceID, query, skillName string, limit int) ToolResult {
	indexer := h.manager.GetIndexer(workspaceID)
	if indexer == nil {
		return errResult("Index not available")
	}

	searcher := index.NewSearcher(indexer)
	opts := index.SearchOptions{
		Query:     query,
		SkillName: skillName,
		Limit:     limit,
	}

	results, err := searcher.Search(context.Background(), opts)
	if err != nil {
		return errResult("Search error: %v", err)
	}

	return textResult(index.FormatResults(results))
}

func (h *Handler) callReadSkill(workspaceID, name string) ToolResult {
	if workspaceID == "" || name == "" {
		return errResult("Error: workspace_id and name are required")
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	ws, err := h.registry.Get(workspaceID)
	if err != nil || ws == nil {
		return errResult("Workspace not found: %s", workspaceID)
	}

	packs, err := skill.LoadAll(ws.SkillsRoot())
	if err != nil {
		return errResult("Error: %v", err)
	}

	for _, p := range packs {
		if strings.EqualFold(p.Name, name) {
			return textResult(p.Raw)
		}
	}

	return errResult("Skill not found: %s", name)
}

func (h *Handler) callListSkills(workspaceID string) ToolResult {
	if workspaceID == "" {
		return errResult("Error: workspace_id is required")
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	ws, err := h.registry.Get(workspaceID)
	if err != nil || ws == nil {
		return errResult("Workspace not found: %s", workspaceID)
	}

	packs, err := skill.LoadAll(ws.SkillsRoot())
	if err != nil {
		return errResult("Error: %v", err)
	}

	if len(packs) == 0 {
		return textResult("No skill packs found in this workspace.")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Skill packs in %s:\n\n", ws.Name))
	for _, p := range packs {
		sb.WriteString(fmt.Sprintf("- **%s**", p.Name))
		if p.Version != "" {
			sb.WriteString(fmt.Sprintf(" v%s", p.Version))
		}
		sb.WriteString("\n")
		if p.Description != "" {
			sb.WriteString(fmt.Sprintf("  %s\n", p.Description))
		}
		if triggers := p.TriggerList(); len(triggers) > 0 {
			sb.WriteString(fmt.Sprintf("  Triggers: %s\n", strings.Join(triggers, ", ")))
		}
		sb.WriteString("\n")
	}

	return textResult(sb.String())
}

func (h *Handler) callRenderDiagrams(arguments map[string]interface{}) ToolResult {
	args := tool.Args{}
	for _, key := range []string{"dir", "width", "height", "scale", "background"} {
		if v, _ := arguments[key].(string); v != "" {
			args[key] = v
		}
	}

	// Resolve a relative dir against the workspace path
	if workspaceID, _ := arguments["workspace_id"].(string); workspaceID != "" {
		ws, err := h.registry.Get(workspaceID)
		if err != nil || ws == nil {
			return errResult("Workspace not found: %s", workspaceID)
		}
		dir := args.String("dir", "docs/diagrams")
		if !filepath.IsAbs(dir) {
			args["dir"] = filepath.Join(ws.Path, dir)
		}
	}

	return h.runTool("render-diagrams", args)
}

func (h *Handler) callAnalyzeJavaDeps(arguments map[string]interface{}) ToolResult {
	target, _ := arguments["target_version"].(string)
	if target == "" {
		return errResult("Error: target_version is required")
	}

	args := tool.Args{"target_version": target}
	if dir, _ := arguments["project_dir"].(string); dir != "" {
		args["project_dir"] = dir
	}
	if src, _ := arguments["source_version"].(string); src != "" {
		args["source_version"] = src
	}

	return h.runTool("analyze-java-deps", args)
}

func (h *Handler) callGetPalette() ToolResult {
	palette, err := skills.Palette()
	if err != nil {
		return errResult("Error: %v", err)
	}

	var sb strings.Builder
	sb.WriteString("Approved diagram colors:\n\n")
	for _, c := range palette {
		sb.WriteString(fmt.Sprintf("- **%s** `%s`", c.Name, c.Hex))
		if c.Usage != "" {
			sb.WriteString(fmt.Sprintf(" - %s", c.Usage))
		}
		sb.WriteString("\n")
	}

	return textResult(sb.String())
}

// runTool dispatches to a registered tool and renders its result.
func (h *Handler) runTool(name string, args tool.Args) ToolResult {
	t, ok := h.tools.Get(name)
	if !ok {
		return errResult("Tool %q not registered", name)
	}

	result, err := t.Run(context.Background(), args)
	if err != nil {
		return errResult("%s failed: %v", name, err)
	}

	payload := map[string]interface{}{
		"status":  string(result.Status),
		"message": result.Message,
	}
	if result.Data != nil {
		payload["data"] = result.Data
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errResult("Marshal result failed: %v", err)
	}

	return textResult(string(data))
}

func (h *Handler) callStats(workspaceID string) ToolResult {
	if workspaceID == "" {
		return errResult("Error: workspace_id is required")
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	indexer := h.manager.GetIndexer(workspaceID)
	if indexer == nil {
		return errResult("Index not available")
	}

	stats := indexer.Stats()
	payload := map[string]interface{}{
		"document_count": stats.DocumentCount,
		"file_count":     stats.FileCount,
		"skill_count":    stats.SkillCount,
		"last_updated":   stats.LastUpdated.Format("2006-01-02 15:04:05"),
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errResult("Marshal stats failed: %v", err)
	}

	return textResult(string(data))
}

func (h *Handler) callReindex(workspaceID string) ToolResult {
	if workspaceID == "" {
		return errResult("Error: workspace_id is required")
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	indexer := h.manager.GetIndexer(workspaceID)
	if indexer == nil {
		return errResult("Index not available")
	}

	if err := indexer.IndexAll(); err != nil {
		return errResult("Reindex failed: %v", err)
	}

	stats := indexer.Stats()
	return textResult(fmt.Sprintf(
		"Reindex complete. Indexed %d chunks from %d files across %d skills.",
		stats.DocumentCount, stats.FileCount, stats.SkillCount))
}

// textResult wraps plain text as a successful tool result.
func textResult(text string) ToolResult {
	return ToolResult{Content: []ContentBlock{{Type: "text", Text: text}}}
}

// errResult formats text as a failed tool result.
func errResult(format string, args ...interface{}) ToolResult {
	return ToolResult{
		Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func writeResponse(w http.ResponseWriter, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// intArg reads a numeric argument; JSON numbers decode as float64.
func intArg(arguments map[string]interface{}, key string, fallback int) int {
	switch v := arguments[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}
