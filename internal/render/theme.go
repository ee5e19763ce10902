package render

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultThemeName = "default"

//go:embed themes.yaml
var themesYAML []byte

// Theme is a closed set of presentation settings for a report.
type Theme struct {
	Name       string   `yaml:"-"`
	Background string   `yaml:"background"`
	TextColor  string   `yaml:"textColor"`
	Font       string   `yaml:"font"`
	Palette    []string `yaml:"palette"`
}

var themes = mustLoadThemes(themesYAML)

func loadThemes(data []byte) (map[string]Theme, error) {
	var parsed map[string]Theme
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse themes: %w", err)
	}
	if _, ok := parsed[DefaultThemeName]; !ok {
		return nil, fmt.Errorf("themes must define %q", DefaultThemeName)
	}
	for name, theme := range parsed {
		theme.Name = name
		parsed[name] = theme
	}
	return parsed, nil
}

func mustLoadThemes(data []byte) map[string]Theme {
	loaded, err := loadThemes(data)
	if err != nil {
		panic(err)
	}
	return loaded
}

// LookupTheme returns the named theme, falling back to the default one.
func LookupTheme(name string) Theme {
	if theme, ok := themes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return theme
	}
	return themes[DefaultThemeName]
}

// ThemeNames lists the available themes.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
