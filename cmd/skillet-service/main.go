// Package main is the entry point for skillet-service.
//
// skillet-service indexes skill packs for registered workspaces and
// exposes them over a REST API, a web UI, and an MCP server that
// Claude Code can attach to.
//
// Usage:
//
//	skillet-service                    Start the service (default)
//	skillet-service serve              Start the service
//	skillet-service version            Show version
//	skillet-service status             Show service status
//	skillet-service stop               Stop the running service
//	skillet-service mcp [workspace]    Start MCP server (stdio mode)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/skillet/index"
	"github.com/ternarybob/skillet/internal/api"
	"github.com/ternarybob/skillet/internal/config"
	"github.com/ternarybob/skillet/internal/service"
	"github.com/ternarybob/skillet/internal/workspace"
)

// version is stamped by the build via -ldflags.
var version = "dev"

func main() {
	api.SetVersion(version)

	cmd, args := "serve", []string(nil)
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}

	if err := dispatch(cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func dispatch(cmd string, args []string) error {
	switch cmd {
	case "serve", "start":
		return cmdServe(args)
	case "version", "-v", "--version":
		cmdVersion()
	case "status":
		return cmdStatus(args)
	case "stop":
		return cmdStop(args)
	case "mcp", "mcp-server":
		return cmdMCP()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	return nil
}

func printUsage() {
	fmt.Println(`skillet-service - Skill pack indexing and discovery service

Usage:
  skillet-service [command]

Commands:
  serve         Run the service in the foreground (default)
  version       Print the build version
  status        Report whether the service is running
  stop          Signal a running service to shut down
  mcp           Serve MCP over stdio for a single workspace
  help          Print this help

Options:
  --config <path>   Config file (serve, status, stop)

Environment:
  GEMINI_API_KEY    API key for semantic search embeddings (optional)
  SKILLET_CONFIG    Config file path, overridden by --config

Configuration:
  Config file: ~/.skillet-service/config.yaml (or $APPDATA/skillet-service on Windows)

Examples:
  skillet-service                   Start the service
  skillet-service mcp ~/skills      Start MCP server for one workspace
  curl localhost:8430/health        Check service health
  curl localhost:8430/workspaces    List registered workspaces`)
}

func cmdVersion() {
	fmt.Printf("skillet-service version %s\n", version)
}

// configPath resolves the config file location: --config flag, then the
// SKILLET_CONFIG environment variable, then the platform default.
func configPath(args []string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	if p := os.Getenv("SKILLET_CONFIG"); p != "" {
		return p
	}
	return config.DefaultConfigPath()
}

func cmdServe(args []string) error {
	cfg, err := config.Load(configPath(args))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if running, pid := service.IsRunning(cfg); running {
		return fmt.Errorf("service already running (PID %d)", pid)
	}

	registry := workspace.NewRegistry(cfg)
	if err := registry.Load(); err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	manager := workspace.NewManager(cfg, registry)
	if err := manager.Initialize(); err != nil {
		return fmt.Errorf("initialize manager: %w", err)
	}
	defer manager.Shutdown()

	daemon := service.NewDaemon(cfg)
	server := api.NewServer(cfg, registry, manager)
	if err := daemon.Start(server.Handler()); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Printf("skillet-service v%s started on %s\n", version, cfg.Address())
	fmt.Printf("Web UI: http://%s/\n", cfg.Address())
	fmt.Printf("API: http://%s/workspaces\n", cfg.Address())

	daemon.Wait()
	return nil
}

func cmdStatus(args []string) error {
	cfg, err := config.Load(configPath(args))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if running, pid := service.IsRunning(cfg); running {
		fmt.Printf("skillet-service: running (PID %d)\n", pid)
		fmt.Printf("Address: %s\n", cfg.Address())
	} else {
		fmt.Println("skillet-service: stopped")
	}
	return nil
}

func cmdStop(args []string) error {
	cfg, err := config.Load(configPath(args))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	running, pid := service.IsRunning(cfg)
	if !running {
		fmt.Println("skillet-service is not running")
		return nil
	}

	fmt.Printf("Stopping skillet-service (PID %d)...\n", pid)
	if err := service.StopRunning(cfg); err != nil {
		return err
	}
	fmt.Println("skillet-service stopped")
	return nil
}

func cmdMCP() error {
	workspacePath := "."
	if len(os.Args) > 2 {
		workspacePath = os.Args[2]
	}
	absPath, err := filepath.Abs(workspacePath)
	if err != nil {
		return fmt.Errorf("resolve workspace path: %w", err)
	}

	// The service config is optional in stdio mode.
	cfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		cfg = config.DefaultConfig()
	}

	llmCfg := index.DefaultLLMConfig()
	if cfg.LLM.APIKey != "" {
		llmCfg.APIKey = cfg.LLM.APIKey
	}
	if llmCfg.APIKey == "" {
		fmt.Fprintf(os.Stderr, "[skillet-service] Warning: GEMINI_API_KEY not set.\n")
		fmt.Fprintf(os.Stderr, "[skillet-service] Semantic search disabled; keyword search still works.\n")
	}

	// Index data lives under the service data dir, not inside the workspace.
	indexCfg := index.DefaultConfig(absPath)
	indexCfg.WorkspaceID = config.WorkspaceHash(absPath)
	indexCfg.IndexPath = cfg.WorkspaceIndexDir(absPath)

	idx, err := index.NewIndexer(indexCfg, index.NewLLMClient(llmCfg))
	if err != nil {
		return fmt.Errorf("create indexer: %w", err)
	}

	if idx.Stats().DocumentCount == 0 {
		fmt.Fprintf(os.Stderr, "[skillet-service] Building index for %s...\n", absPath)
		if err := idx.IndexAll(); err != nil {
			return fmt.Errorf("build index: %w", err)
		}
		stats := idx.Stats()
		fmt.Fprintf(os.Stderr, "[skillet-service] Indexed %d chunks from %d files\n",
			stats.DocumentCount, stats.FileCount)
	}

	// Pick up edits while the server runs.
	if w, err := index.NewWatcher(idx); err == nil && w.Start() == nil {
		defer w.Stop()
	}

	return index.NewMCPServer(idx, nil).ServeStdio()
}
