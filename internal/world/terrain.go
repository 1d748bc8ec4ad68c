package world

import "fmt"

// TerrainClass describes one terrain kind. Elevation bounds are used by world
// generation to pick a class for a sampled height; pathfinding only reads Passable.
type TerrainClass struct {
	Name         string
	Passable     bool
	MinElevation float64
	MaxElevation float64
}

// TerrainTable maps terrain class indices to their properties.
// Immutable once handed to a Grid; snapshots share it.
type TerrainTable struct {
	classes []TerrainClass
	byName  map[string]uint8
}

// Built-in class indices of DefaultTerrainTable.
const (
	ClassGrass uint8 = 0
	ClassDirt  uint8 = 1
	ClassStone uint8 = 2
	ClassWater uint8 = 3
)

// NewTerrainTable builds a table where classes[i] is terrain class index i.
func NewTerrainTable(classes []TerrainClass) (*TerrainTable, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("terrain table: no classes")
	}
	if len(classes) > 256 {
		return nil, fmt.Errorf("terrain table: %d classes exceeds 256", len(classes))
	}
	t := &TerrainTable{
		classes: make([]TerrainClass, len(classes)),
		byName:  make(map[string]uint8, len(classes)),
	}
	copy(t.classes, classes)
	for i, c := range classes {
		if c.Name == "" {
			return nil, fmt.Errorf("terrain table: class %d has no name", i)
		}
		if _, dup := t.byName[c.Name]; dup {
			return nil, fmt.Errorf("terrain table: duplicate class %q", c.Name)
		}
		t.byName[c.Name] = uint8(i)
	}
	return t, nil
}

// DefaultTerrainTable returns grass, dirt, stone and water, in that index order.
func DefaultTerrainTable() *TerrainTable {
	t, _ := NewTerrainTable([]TerrainClass{
		{Name: "grass", Passable: true, MinElevation: 0.3, MaxElevation: 0.7},
		{Name: "dirt", Passable: true, MinElevation: 0.2, MaxElevation: 0.3},
		{Name: "stone", Passable: false, MinElevation: 0.7, MaxElevation: 1.0},
		{Name: "water", Passable: false, MinElevation: 0.0, MaxElevation: 0.2},
	})
	return t
}

// Len returns the number of classes.
func (t *TerrainTable) Len() int { return len(t.classes) }

// Class returns the class at index, or false for unknown indices.
func (t *TerrainTable) Class(index uint8) (TerrainClass, bool) {
	if int(index) >= len(t.classes) {
		return TerrainClass{}, false
	}
	return t.classes[index], true
}

// Passable reports whether the class is walkable. Unknown classes are not.
func (t *TerrainTable) Passable(index uint8) bool {
	if int(index) >= len(t.classes) {
		return false
	}
	return t.classes[index].Passable
}

// Lookup returns the class index for a name.
func (t *TerrainTable) Lookup(name string) (uint8, bool) {
	i, ok := t.byName[name]
	return i, ok
}

// ForElevation returns the first class whose [MinElevation, MaxElevation) range contains e.
// The last class whose MaxElevation is reached inclusively also matches so that e == 1 resolves.
func (t *TerrainTable) ForElevation(e float64) (uint8, bool) {
	for i, c := range t.classes {
		if e >= c.MinElevation && e < c.MaxElevation {
			return uint8(i), true
		}
	}
	for i, c := range t.classes {
		if e == c.MaxElevation && c.MaxElevation > c.MinElevation {
			return uint8(i), true
		}
	}
	return 0, false
}
