// Package skills bundles the skill packs that ship with skillet. Each
// pack is a directory holding a SKILL.md plus optional references and
// templates, embedded at build time so the CLI can install them into a
// project without network access.
package skills

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/skillet/pkg/diagram"
	"github.com/ternarybob/skillet/pkg/skill"
)

// Slug identifies a bundled skill by its canonical folder name.
type Slug string

const (
	DiagramStyle       Slug = "diagram-style"
	EarsRequirements   Slug = "ears-requirements"
	FeatureSpec        Slug = "feature-spec"
	JavaVersionUpgrade Slug = "java-version-upgrade"
)

var bundledSlugs = []Slug{
	DiagramStyle,
	EarsRequirements,
	FeatureSpec,
	JavaVersionUpgrade,
}

//go:embed library
var bundled embed.FS

// All returns the slugs of every bundled skill.
func All() []Slug {
	slugs := make([]Slug, len(bundledSlugs))
	copy(slugs, bundledSlugs)
	return slugs
}

// IsBundled reports whether a slug names a bundled skill.
func IsBundled(slug Slug) bool {
	for _, s := range bundledSlugs {
		if s == slug {
			return true
		}
	}
	return false
}

// Read parses the SKILL.md of a bundled skill.
func Read(slug Slug) (*skill.Skill, error) {
	if !IsBundled(slug) {
		return nil, fmt.Errorf("skill %s is not bundled", slug)
	}

	dir := path.Join("library", string(slug))
	data, err := bundled.ReadFile(path.Join(dir, skill.FileName))
	if err != nil {
		return nil, fmt.Errorf("read embedded skill %s: %w", slug, err)
	}

	s, err := skill.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse embedded skill %s: %w", slug, err)
	}
	s.Dir = dir
	s.Path = path.Join(dir, skill.FileName)
	return s, nil
}

// ReadAll parses every bundled skill.
func ReadAll() ([]*skill.Skill, error) {
	packs := make([]*skill.Skill, 0, len(bundledSlugs))
	for _, slug := range bundledSlugs {
		s, err := Read(slug)
		if err != nil {
			return nil, err
		}
		packs = append(packs, s)
	}
	return packs, nil
}

// Files lists the paths inside a bundled skill pack, relative to the
// pack root and sorted.
func Files(slug Slug) ([]string, error) {
	if !IsBundled(slug) {
		return nil, fmt.Errorf("skill %s is not bundled", slug)
	}

	prefix := path.Join("library", string(slug))
	var files []string
	err := fs.WalkDir(bundled, prefix, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, strings.TrimPrefix(p, prefix+"/"))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk embedded skill %s: %w", slug, err)
	}
	sort.Strings(files)
	return files, nil
}

// ReadFile returns one file from a bundled skill pack by its
// pack-relative path.
func ReadFile(slug Slug, rel string) ([]byte, error) {
	if !IsBundled(slug) {
		return nil, fmt.Errorf("skill %s is not bundled", slug)
	}

	data, err := bundled.ReadFile(path.Join("library", string(slug), rel))
	if err != nil {
		return nil, fmt.Errorf("read %s from skill %s: %w", rel, slug, err)
	}
	return data, nil
}

// Ensure writes a bundled skill pack into baseDir/<slug>/, preserving
// its directory layout, and returns the pack directory. Existing files
// are overwritten so packs can be refreshed in place.
func Ensure(baseDir string, slug Slug) (string, error) {
	if baseDir == "" {
		return "", fmt.Errorf("base directory is empty")
	}

	files, err := Files(slug)
	if err != nil {
		return "", err
	}

	packDir := filepath.Join(baseDir, string(slug))
	for _, rel := range files {
		data, err := ReadFile(slug, rel)
		if err != nil {
			return "", err
		}

		target := filepath.Join(packDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return "", fmt.Errorf("prepare skill directory: %w", err)
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return "", fmt.Errorf("write skill file %s: %w", rel, err)
		}
	}
	return packDir, nil
}

// EnsureAll installs every bundled skill under baseDir.
func EnsureAll(baseDir string) error {
	for _, slug := range bundledSlugs {
		if _, err := Ensure(baseDir, slug); err != nil {
			return err
		}
	}
	return nil
}

// Palette parses the color palette reference bundled with the
// diagram-style skill.
func Palette() (diagram.Palette, error) {
	data, err := ReadFile(DiagramStyle, "references/color-palette.md")
	if err != nil {
		return nil, err
	}
	return diagram.ParsePalette(data)
}
