package javadeps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGradle(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	return dir
}

func findDep(deps []Dependency, coordinate string) (Dependency, bool) {
	for _, dep := range deps {
		if dep.Coordinate() == coordinate {
			return dep, true
		}
	}
	return Dependency{}, false
}

func TestGradleAnalyzer_Applicable(t *testing.T) {
	dir := writeGradle(t, "build.gradle", "")
	assert.True(t, newGradleAnalyzer(dir).applicable())
	assert.False(t, newGradleAnalyzer(t.TempDir()).applicable())
}

func TestGradleAnalyzer_PrefersKotlinDSL(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "build.gradle"), []byte("sourceCompatibility = 11"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "build.gradle.kts"), []byte("sourceCompatibility = 17"), 0644))

	version, err := newGradleAnalyzer(dir).javaVersion()
	require.NoError(t, err)
	assert.Equal(t, "17", version)
}

func TestGradleAnalyzer_JavaVersion(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"quoted source compatibility", `sourceCompatibility = '11'`, "11"},
		{"bare source compatibility", `sourceCompatibility = 17`, "17"},
		{"java version constant", `sourceCompatibility = JavaVersion.VERSION_17`, "17"},
		{
			"toolchain language version",
			"java {\n  toolchain {\n    languageVersion = JavaLanguageVersion.of(21)\n  }\n}",
			"21",
		},
		{"not declared", `plugins { id 'java' }`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeGradle(t, "build.gradle", tt.content)
			got, err := newGradleAnalyzer(dir).javaVersion()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGradleAnalyzer_Dependencies(t *testing.T) {
	dir := writeGradle(t, "build.gradle", `
dependencies {
    implementation 'org.springframework:spring-core:5.0.0'
    testImplementation 'junit:junit:4.11'
    api "com.fasterxml.jackson.core:jackson-databind"
    runtimeOnly 'org.postgresql:postgresql:42.7.1'
}
`)

	deps, err := newGradleAnalyzer(dir).dependencies()
	require.NoError(t, err)
	require.Len(t, deps, 3, "runtimeOnly declarations are not scanned")

	assert.Equal(t, "org.springframework:spring-core:5.0.0", deps[0].String())
	assert.Equal(t, "junit:junit:4.11", deps[1].String())
	assert.Equal(t, "com.fasterxml.jackson.core:jackson-databind", deps[2].String())
}

func TestGradleAnalyzer_KotlinDSLDependencies(t *testing.T) {
	dir := writeGradle(t, "build.gradle.kts", `
dependencies {
    implementation("org.hibernate:hibernate-core:6.2.0")
    testImplementation("org.junit.jupiter:junit-jupiter:5.10.0")
}
`)

	deps, err := newGradleAnalyzer(dir).dependencies()
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, "org.hibernate:hibernate-core:6.2.0", deps[0].String())
	assert.Equal(t, "org.junit.jupiter:junit-jupiter:5.10.0", deps[1].String())
}

func TestGradleAnalyzer_VersionCatalog(t *testing.T) {
	dir := writeGradle(t, "build.gradle.kts", `
dependencies {
    implementation(libs.junit.jupiter)
}
`)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "gradle"), 0755))
	catalog := `
[versions]
junit = "5.10.1"

[libraries]
junit-jupiter = { module = "org.junit.jupiter:junit-jupiter", version.ref = "junit" }
jackson = { group = "com.fasterxml.jackson.core", name = "jackson-databind", version = "2.16.1" }
guava = { module = "com.google.guava:guava" }
dangling = { module = "com.example:lib", version.ref = "missing" }
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gradle", "libs.versions.toml"), []byte(catalog), 0644))

	deps, err := newGradleAnalyzer(dir).dependencies()
	require.NoError(t, err)
	require.Len(t, deps, 4)

	jupiter, ok := findDep(deps, "org.junit.jupiter:junit-jupiter")
	require.True(t, ok)
	assert.Equal(t, "5.10.1", jupiter.Version, "version.ref resolves through [versions]")

	jackson, ok := findDep(deps, "com.fasterxml.jackson.core:jackson-databind")
	require.True(t, ok)
	assert.Equal(t, "2.16.1", jackson.Version)

	guava, ok := findDep(deps, "com.google.guava:guava")
	require.True(t, ok)
	assert.Empty(t, guava.Version)

	dangling, ok := findDep(deps, "com.example:lib")
	require.True(t, ok)
	assert.Empty(t, dangling.Version, "unresolvable refs leave the version empty")
}

func TestGradleAnalyzer_BadCatalog(t *testing.T) {
	dir := writeGradle(t, "build.gradle", `implementation 'junit:junit:4.13.2'`)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "gradle"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gradle", "libs.versions.toml"), []byte("[versions\n"), 0644))

	deps, err := newGradleAnalyzer(dir).dependencies()
	assert.ErrorContains(t, err, "parse version catalog")
	assert.Len(t, deps, 1, "build file dependencies survive a broken catalog")
}
