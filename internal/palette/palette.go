// internal/palette/palette.go
//
// Provides tile color palettes for the game engine.
//
// Responsibilities:
//   - Load named palettes from PALETTE_FILE or fall back to the embedded default.
//   - Validate palettes (at least two distinct #RRGGBB colors each).
//   - Supply lookups: Get, Names, Default.
//
// File format (YAML):
//
//	default: normal
//	palettes:
//	  - name: normal
//	    colors: ["#F02B1D", "#22A03B", ...]
//
// Environment variables:
//
//	PALETTE_FILE=/path/to/palettes.yaml
//
// Initialization is run once (sync.Once).

package palette

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/colormatch/assets"
)

// Set is a validated collection of named palettes.
type Set struct {
	def      string
	palettes map[string][]string
}

type fileFormat struct {
	Default  string `yaml:"default"`
	Palettes []struct {
		Name   string   `yaml:"name"`
		Colors []string `yaml:"colors"`
	} `yaml:"palettes"`
}

var (
	initOnce   sync.Once
	active     *Set
	initialErr error
)

// Init loads palettes exactly once from PALETTE_FILE, or the embedded defaults.
func Init() error {
	initOnce.Do(func() {
		var data []byte
		if path := os.Getenv("PALETTE_FILE"); path != "" {
			data, initialErr = os.ReadFile(path)
		} else {
			data, initialErr = assets.Palettes()
		}
		if initialErr != nil {
			initialErr = fmt.Errorf("palette: read: %w", initialErr)
			return
		}
		active, initialErr = Parse(data)
	})
	return initialErr
}

// Active returns the set loaded by Init, or nil before a successful Init.
func Active() *Set { return active }

// Parse decodes and validates a palette file.
func Parse(data []byte) (*Set, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("palette: decode: %w", err)
	}
	if len(f.Palettes) == 0 {
		return nil, errors.New("palette: no palettes defined")
	}

	s := &Set{palettes: make(map[string][]string, len(f.Palettes))}
	for _, p := range f.Palettes {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			return nil, errors.New("palette: unnamed palette")
		}
		if _, dup := s.palettes[name]; dup {
			return nil, fmt.Errorf("palette: %q defined twice", name)
		}
		colors, err := normalizeColors(p.Colors)
		if err != nil {
			return nil, fmt.Errorf("palette %q: %w", name, err)
		}
		s.palettes[name] = colors
	}

	s.def = strings.ToLower(strings.TrimSpace(f.Default))
	if s.def == "" {
		s.def = strings.ToLower(strings.TrimSpace(f.Palettes[0].Name))
	}
	if _, ok := s.palettes[s.def]; !ok {
		return nil, fmt.Errorf("palette: default %q is not defined", s.def)
	}
	return s, nil
}

// Get returns a copy of the named palette. An empty name selects the default.
func (s *Set) Get(name string) ([]string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = s.def
	}
	p, ok := s.palettes[name]
	if !ok {
		return nil, false
	}
	return append([]string(nil), p...), true
}

// Default returns the default palette name.
func (s *Set) Default() string { return s.def }

// Names lists palette names in sorted order.
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.palettes))
	for name := range s.palettes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// normalizeColors upper-cases #RRGGBB values and rejects short or repeated palettes.
func normalizeColors(in []string) ([]string, error) {
	if len(in) < 2 {
		return nil, errors.New("needs at least 2 colors")
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.ToUpper(strings.TrimSpace(c))
		if !isHexColor(c) {
			return nil, fmt.Errorf("bad color %q", c)
		}
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("duplicate color %s", c)
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

// isHexColor reports whether c is #RRGGBB (upper-case).
func isHexColor(c string) bool {
	if len(c) != 7 || c[0] != '#' {
		return false
	}
	for _, r := range c[1:] {
		if !(r >= '0' && r <= '9' || r >= 'A' && r <= 'F') {
			return false
		}
	}
	return true
}
