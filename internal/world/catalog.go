// Package world loads the static world catalog: arc definitions and the
// creature pool of each world.
package world

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dotcommander/fireverse/internal/core"
	"github.com/dotcommander/fireverse/internal/domain/episode"
)

//go:embed defaults.yaml
var defaultCatalog []byte

// World is a named setting whose creatures are shared by all of its arcs.
type World struct {
	Creatures []string `yaml:"creatures"`
}

// Catalog is the parsed world file.
type Catalog struct {
	Worlds map[string]World        `yaml:"worlds"`
	Arcs   []episode.ArcDefinition `yaml:"arcs"`
}

// LoadCatalog parses a YAML world file.
func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing world catalog: %w", err)
	}
	if c.Worlds == nil {
		c.Worlds = make(map[string]World)
	}
	return &c, nil
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return LoadCatalog(defaultCatalog)
}

// Load reads the catalog at path, or the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading world file: %w", err)
	}
	return LoadCatalog(data)
}

// Find returns the arc whose name matches name, ignoring case and
// surrounding spaces.
func (c *Catalog) Find(name string) (episode.ArcDefinition, error) {
	want := strings.TrimSpace(name)
	for _, arc := range c.Arcs {
		if strings.EqualFold(strings.TrimSpace(arc.Name), want) {
			return arc, nil
		}
	}
	return episode.ArcDefinition{}, fmt.Errorf("%w: %q", core.ErrUnknownArc, name)
}

// Creatures returns the creature pool of an arc: its own list when set,
// otherwise the pool of its world. The result is a copy.
func (c *Catalog) Creatures(arc episode.ArcDefinition) []string {
	if len(arc.Creatures) > 0 {
		return append([]string(nil), arc.Creatures...)
	}
	return append([]string(nil), c.Worlds[arc.WorldName()].Creatures...)
}

// ArcNames returns the arc names sorted alphabetically.
func (c *Catalog) ArcNames() []string {
	names := make([]string, 0, len(c.Arcs))
	for _, arc := range c.Arcs {
		names = append(names, arc.Name)
	}
	sort.Strings(names)
	return names
}
