package skill

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// SkillsDirName is the skills directory inside a .claude root.
const SkillsDirName = "skills"

// ProjectSkillsDir returns the project-level skills directory.
func ProjectSkillsDir(projectRoot string) string {
	return filepath.Join(projectRoot, ".claude", SkillsDirName)
}

// UserSkillsDir returns the user-level skills directory.
func UserSkillsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, ".claude", SkillsDirName), nil
}

// LoadAll loads every pack directly under dir. Packs that fail to parse
// are skipped; a missing dir yields an empty slice.
func LoadAll(dir string) ([]*Skill, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read skills dir: %w", err)
	}

	var skills []*Skill
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		s, err := LoadDir(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		if s.Name == "" {
			s.Name = entry.Name()
		}
		skills = append(skills, s)
	}
	return skills, nil
}

// Discover loads skills from the project then the user directory. A
// project skill shadows a user skill with the same name. Results are
// sorted by name.
func Discover(projectRoot string) ([]*Skill, error) {
	seen := make(map[string]bool)
	var skills []*Skill

	dirs := []string{ProjectSkillsDir(projectRoot)}
	if userDir, err := UserSkillsDir(); err == nil {
		dirs = append(dirs, userDir)
	}

	for _, dir := range dirs {
		loaded, err := LoadAll(dir)
		if err != nil {
			return nil, err
		}
		for _, s := range loaded {
			if seen[s.Name] {
				continue
			}
			seen[s.Name] = true
			skills = append(skills, s)
		}
	}

	sort.Slice(skills, func(i, j int) bool { return skills[i].Name < skills[j].Name })
	return skills, nil
}

// Find returns one discovered skill by name.
func Find(projectRoot, name string) (*Skill, error) {
	skills, err := Discover(projectRoot)
	if err != nil {
		return nil, err
	}
	for _, s := range skills {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("skill not found: %s", name)
}

// InitProject creates the .claude/skills structure for a project and a
// default settings.json when none exists.
func InitProject(projectRoot string) error {
	claudeRoot := filepath.Join(projectRoot, ".claude")

	dirs := []string{
		claudeRoot,
		filepath.Join(claudeRoot, SkillsDirName),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	settingsPath := filepath.Join(claudeRoot, "settings.json")
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		settings := `{
  "project": {
    "name": "",
    "ignorePatterns": ["vendor/", "node_modules/", ".git/"]
  }
}
`
		if err := os.WriteFile(settingsPath, []byte(settings), 0644); err != nil {
			return fmt.Errorf("write settings.json: %w", err)
		}
	}

	return nil
}
