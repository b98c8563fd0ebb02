// Package api provides the REST API and web UI for skillet-service.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ternarybob/skillet/internal/config"
	"github.com/ternarybob/skillet/internal/mcp"
	"github.com/ternarybob/skillet/internal/workspace"
	"github.com/ternarybob/skillet/pkg/tool"
)

// Server carries the REST API, the web UI, and the mounted MCP handler.
type Server struct {
	cfg      *config.Config
	router   chi.Router
	registry *workspace.Registry
	manager  *workspace.Manager
	tools    *tool.Registry
	mcp      *mcp.Handler
}

// NewServer creates a new API server. The tool registry is shared with
// the MCP handler so both surfaces expose the same tool set.
func NewServer(cfg *config.Config, registry *workspace.Registry, manager *workspace.Manager) *Server {
	tools := tool.DefaultRegistry()
	s := &Server{
		cfg:      cfg,
		manager:  manager,
		registry: registry,
		tools:    tools,
		mcp:      mcp.NewHandler(cfg, registry, manager, tools),
	}

	s.setupRouter()
	return s
}

// setupRouter wires middleware and all route groups.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://127.0.0.1:*", "http://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization", "X-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// auth only engages when a key is configured
	if s.cfg.API.APIKey != "" {
		r.Use(s.apiKeyAuth)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)

	if s.cfg.API.Enabled {
		r.Route("/workspaces", func(r chi.Router) {
			r.Get("/", s.handleListWorkspaces)
			r.Post("/", s.handleRegisterWorkspace)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetWorkspace)
				r.Delete("/", s.handleUnregisterWorkspace)
				r.Post("/index", s.handleRebuildIndex)
				r.Post("/search", s.handleSearch)
				r.Get("/skills", s.handleListSkills)
				r.Get("/skills/{name}", s.handleGetSkill)
			})
		})

		r.Get("/library", s.handleLibrary)
		r.Get("/palette", s.handlePalette)
		r.Post("/render", s.handleRender)
		r.Post("/analyze/java", s.handleAnalyzeJava)
	}

	// MCP over HTTP (JSON-RPC + SSE)
	if s.cfg.MCP.Enabled {
		r.Mount("/mcp", s.mcp)
	}

	// HTMX partials for the web UI
	r.Get("/api/workspaces-list", s.handleWorkspacesList)
	r.Post("/api/workspaces-register", s.handleWebRegisterWorkspace)
	r.Get("/api/workspaces/{id}/skill-list", s.handleWebSkillList)
	r.Post("/api/workspaces/{id}/web-search", s.handleWebSearch)
	r.Post("/api/workspaces/{id}/web-reindex", s.handleWebReindex)
	r.Delete("/api/workspaces/{id}/web-remove", s.handleWebUnregisterWorkspace)
	r.Post("/api/workspaces/{id}/web-render", s.handleWebRender)

	// web UI shell and static assets
	r.Get("/", s.handleWebRoot)
	r.Get("/web/*", s.handleWebAssets)

	s.router = r
}

// Handler exposes the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// apiKeyAuth rejects requests that carry no valid key, in either the
// X-API-Key header or the api_key query parameter.
func (s *Server) apiKeyAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// probes stay unauthenticated
		if r.URL.Path == "/health" || r.URL.Path == "/version" {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		if key != s.cfg.API.APIKey {
			writeError(w, http.StatusUnauthorized, "Invalid or missing API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}
