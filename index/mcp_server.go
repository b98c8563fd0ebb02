package index

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ternarybob/skillet/pkg/skill"
	"github.com/ternarybob/skillet/pkg/tool"
)

// MCPServer exposes a workspace index and the built-in tools over the
// Model Context Protocol.
type MCPServer struct {
	indexer *Indexer
	tools   *tool.Registry
	server  *server.MCPServer
}

// NewMCPServer creates an MCP server over the given indexer. A nil
// registry falls back to the built-in tools.
func NewMCPServer(indexer *Indexer, tools *tool.Registry) *MCPServer {
	if tools == nil {
		tools = tool.DefaultRegistry()
	}

	s := &MCPServer{
		indexer: indexer,
		tools:   tools,
		server:  server.NewMCPServer("skillet", "1.0.0", server.WithToolCapabilities(true)),
	}
	s.registerTools(s.server)
	return s
}

// registerTools declares the tool surface of the stdio server.
func (s *MCPServer) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(
		mcp.NewTool("search_skills",
			mcp.WithDescription("Search skill documentation. Finds instructions, conventions, palette entries and templates across the workspace's skill packs."),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Search query (e.g., 'diagram colors', 'EARS event-driven template')"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum results to return (default 10)"),
			),
			mcp.WithString("skill",
				mcp.Description("Filter by skill pack name (e.g., 'diagram-style')"),
			),
			mcp.WithString("path",
				mcp.Description("Filter by file path prefix (e.g., 'diagram-style/references/')"),
			),
		),
		s.handleSearchSkills,
	)

	mcpServer.AddTool(
		mcp.NewTool("read_skill",
			mcp.WithDescription("Read the full SKILL.md of one skill pack, front matter included."),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Skill pack name (e.g., 'feature-spec')"),
			),
		),
		s.handleReadSkill,
	)

	mcpServer.AddTool(
		mcp.NewTool("list_skills",
			mcp.WithDescription("List the skill packs available in the workspace with their descriptions and triggers."),
		),
		s.handleListSkills,
	)

	mcpServer.AddTool(
		mcp.NewTool("render_diagrams",
			mcp.WithDescription("Render Mermaid .mmd sources to PNG using the workspace's render settings."),
			mcp.WithString("dir",
				mcp.Description("Directory to scan for .mmd files (default: docs/diagrams)"),
			),
			mcp.WithNumber("width",
				mcp.Description("Render width in pixels"),
			),
			mcp.WithNumber("height",
				mcp.Description("Render height in pixels"),
			),
		),
		s.handleRenderDiagrams,
	)

	mcpServer.AddTool(
		mcp.NewTool("analyze_java_deps",
			mcp.WithDescription("Analyze a Maven or Gradle project's dependencies for Java version compatibility."),
			mcp.WithString("project_dir",
				mcp.Description("Project directory holding pom.xml or build.gradle (default: current directory)"),
			),
			mcp.WithString("target_version",
				mcp.Required(),
				mcp.Description("Target Java version (e.g., '17', '21')"),
			),
			mcp.WithString("source_version",
				mcp.Description("Current Java version, overrides build file detection"),
			),
		),
		s.handleAnalyzeJavaDeps,
	)

	mcpServer.AddTool(
		mcp.NewTool("stats",
			mcp.WithDescription("Get index statistics: document count, file count, skill count."),
		),
		s.handleStats,
	)

	mcpServer.AddTool(
		mcp.NewTool("reindex",
			mcp.WithDescription("Rebuild the workspace index from scratch. Use after bulk skill changes."),
		),
		s.handleReindex,
	)
}

// handleSearchSkills handles the search_skills tool.
func (s *MCPServer) handleSearchSkills(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	results, err := NewSearcher(s.indexer).Search(ctx, SearchOptions{
		Query:     query,
		Limit:     request.GetInt("limit", 10),
		SkillName: request.GetString("skill", ""),
		FilePath:  request.GetString("path", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	return mcp.NewToolResultText(FormatResults(results)), nil
}

// handleReadSkill handles the read_skill tool.
func (s *MCPServer) handleReadSkill(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("name parameter is required"), nil
	}

	found, err := s.findSkill(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(found.Raw), nil
}

// handleListSkills handles the list_skills tool.
func (s *MCPServer) handleListSkills(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	skills, err := skill.LoadAll(s.indexer.GetConfig().WorkspacePath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load skills: %v", err)), nil
	}
	if len(skills) == 0 {
		return mcp.NewToolResultText("No skill packs found in this workspace.\n"), nil
	}

	sort.Slice(skills, func(i, j int) bool { return skills[i].Name < skills[j].Name })

	var sb strings.Builder
	sb.WriteString("## Available Skills\n\n")
	for _, sk := range skills {
		sb.WriteString(fmt.Sprintf("- **%s**", sk.Name))
		if sk.Version != "" {
			sb.WriteString(fmt.Sprintf(" (v%s)", sk.Version))
		}
		sb.WriteString(fmt.Sprintf(": %s\n", sk.Description))
		if triggers := sk.TriggerList(); len(triggers) > 0 {
			sb.WriteString(fmt.Sprintf("  Triggers: %s\n", strings.Join(triggers, ", ")))
		}
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// handleRenderDiagrams handles the render_diagrams tool.
func (s *MCPServer) handleRenderDiagrams(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := tool.Args{}
	if dir := request.GetString("dir", ""); dir != "" {
		args["dir"] = dir
	}
	if width := request.GetInt("width", 0); width > 0 {
		args["width"] = strconv.Itoa(width)
	}
	if height := request.GetInt("height", 0); height > 0 {
		args["height"] = strconv.Itoa(height)
	}

	return s.runTool(ctx, "render-diagrams", args)
}

// handleAnalyzeJavaDeps handles the analyze_java_deps tool.
func (s *MCPServer) handleAnalyzeJavaDeps(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target := request.GetString("target_version", "")
	if target == "" {
		return mcp.NewToolResultError("target_version parameter is required"), nil
	}

	args := tool.Args{"target_version": target}
	if dir := request.GetString("project_dir", ""); dir != "" {
		args["project_dir"] = dir
	}
	if src := request.GetString("source_version", ""); src != "" {
		args["source_version"] = src
	}

	return s.runTool(ctx, "analyze-java-deps", args)
}

// runTool dispatches to a registered tool and renders its result.
func (s *MCPServer) runTool(ctx context.Context, name string, args tool.Args) (*mcp.CallToolResult, error) {
	t, ok := s.tools.Get(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("tool %q not registered", name)), nil
	}

	result, err := t.Run(ctx, args)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", name, err)), nil
	}

	payload := map[string]interface{}{
		"status":  string(result.Status),
		"message": result.Message,
	}
	if result.Data != nil {
		payload["data"] = result.Data
	}

	jsonBytes, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result failed: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// handleStats reports index counters as indented JSON.
func (s *MCPServer) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.indexer.Stats()

	data, err := json.MarshalIndent(map[string]interface{}{
		"document_count": stats.DocumentCount,
		"file_count":     stats.FileCount,
		"skill_count":    stats.SkillCount,
		"last_updated":   stats.LastUpdated.Format("2006-01-02 15:04:05"),
		"semantic":       s.indexer.HasEmbeddings(),
	}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal stats failed: %v", err)), nil
	}

	return mcp.NewToolResultText(string(data)), nil
}

// handleReindex rebuilds the index and reports the new counts.
func (s *MCPServer) handleReindex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.indexer.IndexAll(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reindex failed: %v", err)), nil
	}

	stats := s.indexer.Stats()
	return mcp.NewToolResultText(fmt.Sprintf("Reindex complete. Indexed %d chunks from %d files across %d skills.",
		stats.DocumentCount, stats.FileCount, stats.SkillCount)), nil
}

// findSkill locates a skill pack by name in the workspace.
func (s *MCPServer) findSkill(name string) (*skill.Skill, error) {
	skills, err := skill.LoadAll(s.indexer.GetConfig().WorkspacePath)
	if err != nil {
		return nil, fmt.Errorf("load skills: %w", err)
	}

	for _, sk := range skills {
		if strings.EqualFold(sk.Name, name) {
			return sk, nil
		}
	}

	return nil, fmt.Errorf("skill %q not found in workspace", name)
}

// ServeStdio starts the MCP server on stdio.
func (s *MCPServer) ServeStdio() error {
	return server.ServeStdio(s.server)
}
