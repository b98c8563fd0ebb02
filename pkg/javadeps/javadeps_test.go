package javadeps

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gookit/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const upgradePom = `<project xmlns="http://maven.apache.org/POM/4.0.0">
  <parent>
    <groupId>org.springframework.boot</groupId>
    <artifactId>spring-boot-starter-parent</artifactId>
    <version>2.7.0</version>
  </parent>
  <properties>
    <java.version>11</java.version>
  </properties>
  <dependencies>
    <dependency>
      <groupId>org.hibernate</groupId>
      <artifactId>hibernate-core</artifactId>
      <version>5.2.0</version>
    </dependency>
    <dependency>
      <groupId>junit</groupId>
      <artifactId>junit</artifactId>
      <version>4.13.2</version>
    </dependency>
  </dependencies>
</project>`

func TestAnalyze_MavenUpgradeTo17(t *testing.T) {
	dir := writePom(t, upgradePom)

	result, err := New(dir, "17").Analyze()
	require.NoError(t, err)

	assert.Equal(t, "Maven", result.BuildType)
	assert.Equal(t, "11", result.CurrentVersion)
	assert.Equal(t, "17", result.TargetVersion)
	assert.Equal(t, 3, result.TotalDependencies, "two dependencies plus the parent")

	require.Len(t, result.CompatibilityIssues, 1)
	issue := result.CompatibilityIssues[0]
	assert.Equal(t, "org.hibernate:hibernate-core:5.2.0", issue.Dependency)
	assert.Equal(t, "5.2.0", issue.CurrentVersion)
	assert.Equal(t, "5.4.24", issue.MinVersion)
	assert.Equal(t, "high", issue.Severity)
	assert.True(t, result.HasIssues())

	assert.Empty(t, result.RemovedModules)

	require.Len(t, result.Recommendations, 1)
	rec := result.Recommendations[0]
	assert.Equal(t, "org.springframework.boot:spring-boot-starter-parent", rec.Dependency)
	assert.Equal(t, "2.7.0", rec.CurrentVersion)
	assert.Equal(t, "3.0.0", rec.RecommendedVersion)
	assert.Equal(t, "Better Java 17 support", rec.Reason)
}

func TestAnalyze_RemovedModulesFor11(t *testing.T) {
	dir := writePom(t, `<project xmlns="http://maven.apache.org/POM/4.0.0">
  <dependencies>
    <dependency>
      <groupId>javax.xml.bind</groupId>
      <artifactId>jaxb-api</artifactId>
      <version>2.3.1</version>
    </dependency>
  </dependencies>
</project>`)

	result, err := New(dir, "11").Analyze()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"javax.activation:activation",
		"javax.xml.ws:jaxws-api",
		"javax.annotation:javax.annotation-api",
	}, result.RemovedModules, "declared modules are not reported")
	assert.False(t, result.HasIssues())
}

func TestAnalyze_SourceVersionOverride(t *testing.T) {
	dir := writePom(t, upgradePom)

	analyzer := New(dir, "17")
	analyzer.SourceVersion = "8"

	result, err := analyzer.Analyze()
	require.NoError(t, err)
	assert.Equal(t, "8", result.CurrentVersion)
}

func TestAnalyze_UnknownJavaVersion(t *testing.T) {
	dir := writePom(t, `<project xmlns="http://maven.apache.org/POM/4.0.0"/>`)

	result, err := New(dir, "17").Analyze()
	require.NoError(t, err)
	assert.Equal(t, "unknown", result.CurrentVersion)
}

func TestAnalyze_UnknownTargetVersion(t *testing.T) {
	dir := writePom(t, upgradePom)

	result, err := New(dir, "99").Analyze()
	require.NoError(t, err)
	assert.Empty(t, result.CompatibilityIssues)
	assert.Empty(t, result.RemovedModules)
	assert.Empty(t, result.Recommendations)
	assert.Equal(t, 3, result.TotalDependencies)
}

func TestAnalyze_NoBuildFile(t *testing.T) {
	_, err := New(t.TempDir(), "17").Analyze()
	assert.ErrorContains(t, err, "no Maven (pom.xml) or Gradle (build.gradle) build file found")
}

func TestAnalyze_MalformedBuildFileWarns(t *testing.T) {
	dir := writePom(t, `<project><oops>`)

	result, err := New(dir, "17").Analyze()
	require.NoError(t, err, "parse failures degrade to warnings")

	assert.Equal(t, "unknown", result.CurrentVersion)
	assert.Zero(t, result.TotalDependencies)
	assert.Len(t, result.Warnings, 2)
}

func TestAnalyze_GradleProject(t *testing.T) {
	dir := writeGradle(t, "build.gradle", `
sourceCompatibility = '11'
dependencies {
    implementation 'org.springframework:spring-core:5.0.0'
}
`)

	result, err := New(dir, "17").Analyze()
	require.NoError(t, err)

	assert.Equal(t, "Gradle", result.BuildType)
	assert.Equal(t, "11", result.CurrentVersion)
	require.Len(t, result.CompatibilityIssues, 1)
	assert.Equal(t, "org.springframework:spring-core:5.0.0", result.CompatibilityIssues[0].Dependency)
}

func TestResult_JSON(t *testing.T) {
	dir := writePom(t, `<project xmlns="http://maven.apache.org/POM/4.0.0"/>`)

	result, err := New(dir, "17").Analyze()
	require.NoError(t, err)

	data, err := result.JSON()
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, `"build_type": "Maven"`)
	assert.Contains(t, out, `"compatibility_issues": []`, "empty lists stay arrays")
	assert.Contains(t, out, `"removed_modules": []`)
	assert.NotContains(t, out, "project_dir")
}

func TestResult_Print(t *testing.T) {
	color.Disable()

	result := &Result{
		ProjectDir:        "/tmp/demo",
		BuildType:         "Maven",
		CurrentVersion:    "11",
		TargetVersion:     "17",
		TotalDependencies: 3,
		CompatibilityIssues: []Issue{
			{Dependency: "org.hibernate:hibernate-core:5.2.0", CurrentVersion: "5.2.0", MinVersion: "5.4.24", Severity: "high"},
		},
		RemovedModules: []string{"javax.xml.bind:jaxb-api"},
		Recommendations: []Recommendation{
			{Dependency: "org.springframework.boot:spring-boot-starter-parent", CurrentVersion: "2.7.0", RecommendedVersion: "3.0.0", Reason: "Better Java 17 support"},
		},
	}

	var buf bytes.Buffer
	result.Print(&buf)
	out := buf.String()

	assert.Contains(t, out, "Java Dependency Analysis Report")
	assert.Contains(t, out, "Project Directory: /tmp/demo")
	assert.Contains(t, out, "Build Type: Maven")
	assert.Contains(t, out, "Found 3 dependencies")
	assert.Contains(t, out, "✗ org.hibernate:hibernate-core:5.2.0")
	assert.Contains(t, out, "Current: 5.2.0 | Required: 5.4.24 or higher")
	assert.Contains(t, out, "! javax.xml.bind:jaxb-api")
	assert.Contains(t, out, "→ org.springframework.boot:spring-boot-starter-parent")
	assert.Contains(t, out, "Reason: Better Java 17 support")
	assert.Contains(t, out, "Critical Issues: 1")
}

func TestResult_PrintClean(t *testing.T) {
	color.Disable()

	result := &Result{
		ProjectDir:          "/tmp/demo",
		BuildType:           "Gradle",
		CurrentVersion:      "17",
		TargetVersion:       "21",
		CompatibilityIssues: []Issue{},
		RemovedModules:      []string{},
		Recommendations:     []Recommendation{},
	}

	var buf bytes.Buffer
	result.Print(&buf)

	assert.Contains(t, buf.String(), "✓ No compatibility issues found")
	assert.NotContains(t, buf.String(), "Missing Dependencies")
}

func TestDependency_String(t *testing.T) {
	withVersion := Dependency{GroupID: "junit", ArtifactID: "junit", Version: "4.12"}
	assert.Equal(t, "junit:junit:4.12", withVersion.String())
	assert.Equal(t, "junit:junit", withVersion.Coordinate())

	noVersion := Dependency{GroupID: "com.google.guava", ArtifactID: "guava"}
	assert.Equal(t, "com.google.guava:guava", noVersion.String())
}

func TestAnalyze_RelativeProjectDir(t *testing.T) {
	dir := writePom(t, upgradePom)
	wd, err := os.Getwd()
	require.NoError(t, err)
	rel, err := filepath.Rel(wd, dir)
	if err != nil {
		t.Skip("temp dir not reachable relative to working directory")
	}

	result, analyzeErr := New(rel, "17").Analyze()
	require.NoError(t, analyzeErr)
	assert.True(t, filepath.IsAbs(result.ProjectDir))
}
