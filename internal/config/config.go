// Package config holds the skillet-service configuration: YAML loading
// with environment and tilde expansion, plus the data-dir path layout.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/skillet/internal/fileutil"
	"github.com/ternarybob/skillet/pkg/diagram"
)

// dirName is the per-OS data directory leaf for the service.
const dirName = "skillet-service"

// Config is the full configuration tree, one struct per YAML section.
type (
	Config struct {
		Service ServiceConfig `yaml:"service"`
		API     APIConfig     `yaml:"api"`
		MCP     MCPConfig     `yaml:"mcp"`
		Render  RenderConfig  `yaml:"render"`
		LLM     LLMConfig     `yaml:"llm"`
	}

	// ServiceConfig is the service section: bind address, data dir, log level.
	ServiceConfig struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		DataDir  string `yaml:"data_dir"`
		LogLevel string `yaml:"log_level"`
	}

	// APIConfig toggles the REST API and its key auth.
	APIConfig struct {
		Enabled bool   `yaml:"enabled"`
		APIKey  string `yaml:"api_key"`
	}

	// MCPConfig toggles the HTTP MCP endpoint.
	MCPConfig struct {
		Enabled bool `yaml:"enabled"`
	}

	// RenderConfig holds service-side diagram rendering defaults. The CLI
	// render command reads only the environment; this section applies to
	// the /render endpoint.
	RenderConfig struct {
		Width      string `yaml:"width"`
		Height     string `yaml:"height"`
		Scale      string `yaml:"scale"`
		Background string `yaml:"background"`
	}

	// LLMConfig carries the Gemini key used for embeddings and summaries.
	LLMConfig struct {
		APIKey string `yaml:"api_key"`
	}
)

// Options converts the render section to diagram options, keeping the
// built-in default for any empty field.
func (r RenderConfig) Options() diagram.Options {
	opts := diagram.DefaultOptions()
	if r.Width != "" {
		opts.Width = r.Width
	}
	if r.Height != "" {
		opts.Height = r.Height
	}
	if r.Scale != "" {
		opts.Scale = r.Scale
	}
	if r.Background != "" {
		opts.Background = r.Background
	}
	return opts
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	render := diagram.DefaultOptions()
	return &Config{
		Service: ServiceConfig{
			Host:     "127.0.0.1",
			Port:     8430,
			DataDir:  DefaultDataDir(),
			LogLevel: "info",
		},
		// an empty API key disables auth, fine for localhost
		API: APIConfig{Enabled: true},
		MCP: MCPConfig{Enabled: true},
		Render: RenderConfig{
			Width:      render.Width,
			Height:     render.Height,
			Scale:      render.Scale,
			Background: render.Background,
		},
		LLM: LLMConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
	}
}

// DefaultDataDir picks the platform's conventional application data
// location for the service.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, dirName)
		}
		return filepath.Join(home, "AppData", "Roaming", dirName)
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", dirName)
	}

	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dirName)
	}
	return filepath.Join(home, "."+dirName)
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// Load reads the config at path, layered over the defaults. A missing
// file is not an error; the defaults stand. ${VAR} references expand
// from the environment before parsing, and a leading ~ in data_dir
// expands to the home directory.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	cfg.Service.DataDir = fileutil.ExpandTilde(cfg.Service.DataDir)

	return cfg, nil
}

// Save writes the config as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := fileutil.WriteFile(path, data); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Address returns the host:port the HTTP server binds.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Service.Host, c.Service.Port)
}

// WorkspacesDir returns the path to the workspaces data directory.
func (c *Config) WorkspacesDir() string {
	return filepath.Join(c.Service.DataDir, "data", "workspaces")
}

// RegistryPath is where the workspace registry JSON lives.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.Service.DataDir, "registry.json")
}

// LogPath is the service log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Service.DataDir, "logs", "service.log")
}

// PIDPath returns the path to the daemon PID file.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Service.DataDir, "service.pid")
}

// EnsureDirectories creates the data-dir layout the service writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Service.DataDir, c.WorkspacesDir(), filepath.Dir(c.LogPath())} {
		if err := fileutil.EnsureDir(dir); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WorkspaceHash derives the 16-hex-char identifier for a workspace
// path. The path is made absolute and cleaned first so trailing-slash
// and relative spellings hash alike.
func WorkspaceHash(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := sha256.Sum256([]byte(filepath.Clean(abs)))
	return hex.EncodeToString(sum[:])[:16]
}

// WorkspaceDataDir returns the data directory for a specific workspace.
func (c *Config) WorkspaceDataDir(workspacePath string) string {
	return filepath.Join(c.WorkspacesDir(), WorkspaceHash(workspacePath))
}

// WorkspaceIndexDir returns the index directory for a specific workspace.
func (c *Config) WorkspaceIndexDir(workspacePath string) string {
	return filepath.Join(c.WorkspaceDataDir(workspacePath), "index")
}
