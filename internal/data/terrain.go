package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/navcore/internal/world"
)

// TerrainEntry is one class in terrain_list.yaml.
type TerrainEntry struct {
	Index        int     `yaml:"index"`
	Name         string  `yaml:"name"`
	Passable     bool    `yaml:"passable"`
	MinElevation float64 `yaml:"min_elevation"`
	MaxElevation float64 `yaml:"max_elevation"`
}

type terrainListFile struct {
	Terrain []TerrainEntry `yaml:"terrain"`
}

// LoadTerrainTable reads terrain classes from YAML. Indices must be dense,
// starting at 0, in any order.
func LoadTerrainTable(path string) (*world.TerrainTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read terrain list %s: %w", path, err)
	}
	return ParseTerrainTable(raw)
}

// ParseTerrainTable parses terrain_list.yaml content.
func ParseTerrainTable(raw []byte) (*world.TerrainTable, error) {
	var file terrainListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse terrain list: %w", err)
	}
	n := len(file.Terrain)
	classes := make([]world.TerrainClass, n)
	seen := make([]bool, n)
	for _, e := range file.Terrain {
		if e.Index < 0 || e.Index >= n {
			return nil, fmt.Errorf("terrain %q: index %d out of range 0..%d", e.Name, e.Index, n-1)
		}
		if seen[e.Index] {
			return nil, fmt.Errorf("terrain %q: index %d used twice", e.Name, e.Index)
		}
		if e.MaxElevation < e.MinElevation {
			return nil, fmt.Errorf("terrain %q: elevation range inverted", e.Name)
		}
		seen[e.Index] = true
		classes[e.Index] = world.TerrainClass{
			Name:         e.Name,
			Passable:     e.Passable,
			MinElevation: e.MinElevation,
			MaxElevation: e.MaxElevation,
		}
	}
	return world.NewTerrainTable(classes)
}
