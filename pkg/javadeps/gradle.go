package javadeps

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

var (
	sourceCompatRe = regexp.MustCompile(`sourceCompatibility\s*=\s*["']?(\d+)`)
	javaVersionRe  = regexp.MustCompile(`JavaVersion\.VERSION_(\d+)`)
	toolchainRe    = regexp.MustCompile(`languageVersion\s*=\s*JavaLanguageVersion\.of\((\d+)\)`)

	// implementation 'group:artifact:version' and implementation("...") forms
	gradleDepRe = regexp.MustCompile(`(?:implementation|api|compile|testImplementation|testCompile)\s*\(?\s*['"]([^:'"]+):([^:'"]+)(?::([^'"]+))?['"]`)
)

// gradleAnalyzer reads build.gradle / build.gradle.kts and the optional
// gradle/libs.versions.toml version catalog.
type gradleAnalyzer struct {
	projectDir  string
	buildPath   string
	catalogPath string
}

func newGradleAnalyzer(projectDir string) *gradleAnalyzer {
	g := &gradleAnalyzer{
		projectDir:  projectDir,
		catalogPath: filepath.Join(projectDir, "gradle", "libs.versions.toml"),
	}
	for _, name := range []string{"build.gradle.kts", "build.gradle"} {
		candidate := filepath.Join(projectDir, name)
		if _, err := os.Stat(candidate); err == nil {
			g.buildPath = candidate
			break
		}
	}
	return g
}

func (g *gradleAnalyzer) applicable() bool { return g.buildPath != "" }

func (g *gradleAnalyzer) buildType() string { return "Gradle" }

// javaVersion matches sourceCompatibility, JavaVersion.VERSION_N, or the
// toolchain languageVersion declaration, in that order.
func (g *gradleAnalyzer) javaVersion() (string, error) {
	content, err := os.ReadFile(g.buildPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", filepath.Base(g.buildPath), err)
	}

	for _, re := range []*regexp.Regexp{sourceCompatRe, javaVersionRe, toolchainRe} {
		if m := re.FindSubmatch(content); m != nil {
			return string(m[1]), nil
		}
	}
	return "", nil
}

func (g *gradleAnalyzer) dependencies() ([]Dependency, error) {
	content, err := os.ReadFile(g.buildPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(g.buildPath), err)
	}

	var deps []Dependency
	for _, m := range gradleDepRe.FindAllStringSubmatch(string(content), -1) {
		deps = append(deps, Dependency{
			GroupID:    m[1],
			ArtifactID: m[2],
			Version:    m[3],
		})
	}

	catalog, err := g.catalogDependencies()
	if err != nil {
		return deps, err
	}
	return append(deps, catalog...), nil
}

// versionCatalog models the subset of libs.versions.toml we care about.
type versionCatalog struct {
	Versions  map[string]interface{}    `toml:"versions"`
	Libraries map[string]catalogLibrary `toml:"libraries"`
}

type catalogLibrary struct {
	Module  string      `toml:"module"`
	Group   string      `toml:"group"`
	Name    string      `toml:"name"`
	Version interface{} `toml:"version"`
}

// catalogDependencies reads the Gradle version catalog when present,
// resolving version.ref entries through the [versions] table.
func (g *gradleAnalyzer) catalogDependencies() ([]Dependency, error) {
	data, err := os.ReadFile(g.catalogPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read version catalog: %w", err)
	}

	var catalog versionCatalog
	if err := toml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse version catalog: %w", err)
	}

	var deps []Dependency
	for _, lib := range catalog.Libraries {
		group, artifact := lib.Group, lib.Name
		if lib.Module != "" {
			parts := strings.SplitN(lib.Module, ":", 2)
			if len(parts) == 2 {
				group, artifact = parts[0], parts[1]
			}
		}
		if group == "" || artifact == "" {
			continue
		}

		deps = append(deps, Dependency{
			GroupID:    group,
			ArtifactID: artifact,
			Version:    catalog.resolveVersion(lib.Version),
		})
	}
	return deps, nil
}

func (c *versionCatalog) resolveVersion(version interface{}) string {
	switch v := version.(type) {
	case string:
		return v
	case map[string]interface{}:
		ref, ok := v["ref"].(string)
		if !ok {
			return ""
		}
		if resolved, ok := c.Versions[ref].(string); ok {
			return resolved
		}
	}
	return ""
}
