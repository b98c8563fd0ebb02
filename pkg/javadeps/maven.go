package javadeps

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// mavenAnalyzer reads pom.xml.
type mavenAnalyzer struct {
	pomPath string
}

func newMavenAnalyzer(projectDir string) *mavenAnalyzer {
	return &mavenAnalyzer{pomPath: filepath.Join(projectDir, "pom.xml")}
}

func (m *mavenAnalyzer) applicable() bool {
	_, err := os.Stat(m.pomPath)
	return err == nil
}

func (m *mavenAnalyzer) buildType() string { return "Maven" }

type mavenCoordinate struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

type mavenPlugin struct {
	ArtifactID    string `xml:"artifactId"`
	Configuration struct {
		Source string `xml:"source"`
	} `xml:"configuration"`
}

type mavenPOM struct {
	XMLName      xml.Name          `xml:"project"`
	Parent       *mavenCoordinate  `xml:"parent"`
	Properties   mavenProperties   `xml:"properties"`
	Dependencies []mavenCoordinate `xml:"dependencies>dependency"`
	Build        struct {
		Plugins []mavenPlugin `xml:"plugins>plugin"`
	} `xml:"build"`
}

// mavenProperties keeps every property so ${...} references resolve.
type mavenProperties struct {
	values map[string]string
}

func (p *mavenProperties) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	p.values = make(map[string]string)
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var value string
			if err := d.DecodeElement(&value, &t); err != nil {
				return err
			}
			p.values[t.Name.Local] = strings.TrimSpace(value)
		case xml.EndElement:
			if t.Name == start.Name {
				return nil
			}
		}
	}
}

func (m *mavenAnalyzer) parse() (*mavenPOM, error) {
	data, err := os.ReadFile(m.pomPath)
	if err != nil {
		return nil, fmt.Errorf("read pom.xml: %w", err)
	}

	var pom mavenPOM
	if err := xml.Unmarshal(data, &pom); err != nil {
		return nil, fmt.Errorf("parse pom.xml: %w", err)
	}
	return &pom, nil
}

// javaVersion reports the configured source level: compiler property,
// java.version property, then the maven-compiler-plugin source setting.
func (m *mavenAnalyzer) javaVersion() (string, error) {
	pom, err := m.parse()
	if err != nil {
		return "", err
	}

	if v := pom.Properties.values["maven.compiler.source"]; v != "" {
		return v, nil
	}
	if v := pom.Properties.values["java.version"]; v != "" {
		return v, nil
	}
	for _, plugin := range pom.Build.Plugins {
		if plugin.ArtifactID == "maven-compiler-plugin" && plugin.Configuration.Source != "" {
			return plugin.Configuration.Source, nil
		}
	}
	return "", nil
}

// dependencies returns declared dependencies plus the parent coordinate,
// with ${property} versions resolved against the pom properties.
func (m *mavenAnalyzer) dependencies() ([]Dependency, error) {
	pom, err := m.parse()
	if err != nil {
		return nil, err
	}

	var deps []Dependency
	for _, d := range pom.Dependencies {
		if d.GroupID == "" || d.ArtifactID == "" {
			continue
		}
		deps = append(deps, Dependency{
			GroupID:    d.GroupID,
			ArtifactID: d.ArtifactID,
			Version:    resolveProperty(d.Version, pom.Properties.values),
		})
	}

	if p := pom.Parent; p != nil && p.GroupID != "" && p.ArtifactID != "" {
		deps = append(deps, Dependency{
			GroupID:    p.GroupID,
			ArtifactID: p.ArtifactID,
			Version:    resolveProperty(p.Version, pom.Properties.values),
		})
	}

	return deps, nil
}

// resolveProperty substitutes a single ${name} reference when the
// property is known; unresolved references pass through verbatim.
func resolveProperty(value string, props map[string]string) string {
	if !strings.HasPrefix(value, "${") || !strings.HasSuffix(value, "}") {
		return value
	}
	name := value[2 : len(value)-1]
	if resolved, ok := props[name]; ok && resolved != "" {
		return resolved
	}
	return value
}
