// Package javadeps analyzes Maven and Gradle projects for dependency
// compatibility issues when upgrading to a newer Java version. It checks
// declared dependencies against a database of known minimum versions,
// flags JDK modules removed in the target release, and suggests upgrades
// that track the target version better.
package javadeps

import (
	"encoding/json"
	"fmt"
	"path/filepath"
)

// Dependency is a single declared project dependency.
type Dependency struct {
	GroupID    string `json:"group_id"`
	ArtifactID string `json:"artifact_id"`
	Version    string `json:"version,omitempty"`
}

// Coordinate returns the group:artifact pair without the version.
func (d Dependency) Coordinate() string {
	return d.GroupID + ":" + d.ArtifactID
}

func (d Dependency) String() string {
	if d.Version == "" {
		return d.Coordinate()
	}
	return d.Coordinate() + ":" + d.Version
}

// Issue is a dependency whose declared version is below the minimum
// known to work on the target Java version.
type Issue struct {
	Dependency     string `json:"dependency"`
	CurrentVersion string `json:"current_version"`
	MinVersion     string `json:"min_version"`
	Severity       string `json:"severity"`
}

// Recommendation suggests a version upgrade for better target support.
type Recommendation struct {
	Dependency         string `json:"dependency"`
	CurrentVersion     string `json:"current_version"`
	RecommendedVersion string `json:"recommended_version"`
	Reason             string `json:"reason"`
}

// Result holds the outcome of a project analysis.
type Result struct {
	// ProjectDir is shown in the printed report but kept out of the
	// JSON output.
	ProjectDir string `json:"-"`

	BuildType           string           `json:"build_type"`
	CurrentVersion      string           `json:"current_version"`
	TargetVersion       string           `json:"target_version"`
	TotalDependencies   int              `json:"total_dependencies"`
	CompatibilityIssues []Issue          `json:"compatibility_issues"`
	RemovedModules      []string         `json:"removed_modules"`
	Recommendations     []Recommendation `json:"recommendations"`
	Warnings            []string         `json:"warnings,omitempty"`
}

// HasIssues reports whether any compatibility issues were found.
func (r *Result) HasIssues() bool {
	return len(r.CompatibilityIssues) > 0
}

// JSON renders the result as indented JSON.
func (r *Result) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal analysis result: %w", err)
	}
	return data, nil
}

// buildAnalyzer abstracts over the supported build systems.
type buildAnalyzer interface {
	applicable() bool
	buildType() string
	javaVersion() (string, error)
	dependencies() ([]Dependency, error)
}

// Analyzer inspects a Java project directory for upgrade readiness.
type Analyzer struct {
	// ProjectDir is the directory containing pom.xml or build.gradle.
	ProjectDir string

	// SourceVersion overrides auto-detection of the current Java
	// version when set.
	SourceVersion string

	// TargetVersion is the Java version being upgraded to, e.g. "17".
	TargetVersion string
}

// New returns an Analyzer for projectDir targeting the given Java version.
func New(projectDir, targetVersion string) *Analyzer {
	return &Analyzer{ProjectDir: projectDir, TargetVersion: targetVersion}
}

// Analyze detects the build system, reads the declared dependencies and
// checks them against the compatibility database for the target version.
// Maven is preferred when both build files exist. Parse failures in the
// build file degrade to warnings rather than aborting the analysis.
func (a *Analyzer) Analyze() (*Result, error) {
	dir, err := filepath.Abs(a.ProjectDir)
	if err != nil {
		return nil, fmt.Errorf("resolve project dir: %w", err)
	}

	var analyzer buildAnalyzer
	for _, candidate := range []buildAnalyzer{newMavenAnalyzer(dir), newGradleAnalyzer(dir)} {
		if candidate.applicable() {
			analyzer = candidate
			break
		}
	}
	if analyzer == nil {
		return nil, fmt.Errorf("no Maven (pom.xml) or Gradle (build.gradle) build file found in %s", dir)
	}

	result := &Result{
		ProjectDir:          dir,
		BuildType:           analyzer.buildType(),
		TargetVersion:       a.TargetVersion,
		CompatibilityIssues: []Issue{},
		RemovedModules:      []string{},
		Recommendations:     []Recommendation{},
	}

	detected, err := analyzer.javaVersion()
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("could not detect Java version: %v", err))
	}
	result.CurrentVersion = a.SourceVersion
	if result.CurrentVersion == "" {
		result.CurrentVersion = detected
	}
	if result.CurrentVersion == "" {
		result.CurrentVersion = "unknown"
	}

	deps, err := analyzer.dependencies()
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("could not parse dependencies: %v", err))
	}
	result.TotalDependencies = len(deps)

	entry, known := compatibilityDB[a.TargetVersion]
	if !known {
		return result, nil
	}

	result.CompatibilityIssues = checkMinVersions(deps, entry)
	result.RemovedModules = checkRemovedModules(deps, entry)
	result.Recommendations = recommendations(deps, entry, a.TargetVersion)
	return result, nil
}

// checkMinVersions flags dependencies declared below the minimum version
// known to work on the target Java release. Dependencies without an
// explicit version are skipped.
func checkMinVersions(deps []Dependency, entry compatEntry) []Issue {
	issues := []Issue{}
	for _, dep := range deps {
		min, ok := entry.minVersions[dep.Coordinate()]
		if !ok || dep.Version == "" {
			continue
		}
		if compareVersions(dep.Version, min) < 0 {
			issues = append(issues, Issue{
				Dependency:     dep.String(),
				CurrentVersion: dep.Version,
				MinVersion:     min,
				Severity:       "high",
			})
		}
	}
	return issues
}

// checkRemovedModules lists JDK modules removed in the target release
// that the project does not declare an explicit dependency on.
func checkRemovedModules(deps []Dependency, entry compatEntry) []string {
	declared := make(map[string]struct{}, len(deps))
	for _, dep := range deps {
		declared[dep.Coordinate()] = struct{}{}
	}

	missing := []string{}
	for _, module := range entry.removedModules {
		if _, ok := declared[module]; !ok {
			missing = append(missing, module)
		}
	}
	return missing
}

func recommendations(deps []Dependency, entry compatEntry, target string) []Recommendation {
	recs := []Recommendation{}
	for _, dep := range deps {
		recommended, ok := entry.recommendedVersions[dep.Coordinate()]
		if !ok {
			continue
		}
		if dep.Version == "" || compareVersions(dep.Version, recommended) < 0 {
			current := dep.Version
			if current == "" {
				current = "unknown"
			}
			recs = append(recs, Recommendation{
				Dependency:         dep.Coordinate(),
				CurrentVersion:     current,
				RecommendedVersion: recommended,
				Reason:             "Better Java " + target + " support",
			})
		}
	}
	return recs
}
