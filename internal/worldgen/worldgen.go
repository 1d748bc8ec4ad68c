// Package worldgen builds deterministic terrain grids from seeded noise.
package worldgen

import (
	"fmt"

	"github.com/l1jgo/navcore/internal/world"
)

// Params controls generation. Zero values take the defaults noted per field.
type Params struct {
	Width    int32
	Height   int32
	CellSize float64 // default 1
	Seed     uint32
	Scale    float64 // noise frequency per cell, default 0.05
	Octaves  int     // default 3
	// Border is the class name painted on the outermost BorderWidth rings.
	Border      string // default "water"
	BorderWidth int32  // default 1; negative disables the border
	// SpawnRadius clears a square of this Chebyshev radius around the centre
	// to SpawnClass. Default 2; negative disables it.
	SpawnRadius int32
	SpawnClass  string // default: first passable class
}

func (p *Params) applyDefaults() {
	if p.CellSize <= 0 {
		p.CellSize = 1
	}
	if p.Scale <= 0 {
		p.Scale = 0.05
	}
	if p.Octaves <= 0 {
		p.Octaves = 3
	}
	if p.Border == "" {
		p.Border = "water"
	}
	if p.BorderWidth == 0 {
		p.BorderWidth = 1
	}
	if p.SpawnRadius == 0 {
		p.SpawnRadius = 2
	}
}

// Generate builds a grid. The same Params and table always produce the same cells.
func Generate(p Params, terrain *world.TerrainTable) (*world.Grid, error) {
	p.applyDefaults()
	if terrain == nil {
		terrain = world.DefaultTerrainTable()
	}
	g, err := world.NewGrid(p.Width, p.Height, p.CellSize, terrain, 0)
	if err != nil {
		return nil, fmt.Errorf("worldgen: %w", err)
	}

	border, ok := terrain.Lookup(p.Border)
	if !ok && p.BorderWidth > 0 {
		return nil, fmt.Errorf("worldgen: unknown border class %q", p.Border)
	}
	spawn, err := spawnClass(p.SpawnClass, terrain)
	if err != nil && p.SpawnRadius > 0 {
		return nil, err
	}

	cx, cy := p.Width/2, p.Height/2
	for x := int32(0); x < p.Width; x++ {
		for y := int32(0); y < p.Height; y++ {
			c := world.Cell{X: x, Y: y}
			switch {
			case p.BorderWidth > 0 && edgeDistance(c, p.Width, p.Height) < p.BorderWidth:
				g.SetCell(c, border, nil)
			case p.SpawnRadius > 0 && abs32(x-cx) <= p.SpawnRadius && abs32(y-cy) <= p.SpawnRadius:
				g.SetCell(c, spawn, nil)
			default:
				e := fbm(p.Seed, float64(x)*p.Scale, float64(y)*p.Scale, p.Octaves)
				class, ok := terrain.ForElevation(e)
				if !ok {
					class = 0
				}
				g.SetCell(c, class, nil)
			}
		}
	}
	return g, nil
}

// Elevation exposes the noise field used by Generate, in [0, 1).
func Elevation(p Params, x, y int32) float64 {
	p.applyDefaults()
	return fbm(p.Seed, float64(x)*p.Scale, float64(y)*p.Scale, p.Octaves)
}

func spawnClass(name string, terrain *world.TerrainTable) (uint8, error) {
	if name != "" {
		idx, ok := terrain.Lookup(name)
		if !ok {
			return 0, fmt.Errorf("worldgen: unknown spawn class %q", name)
		}
		return idx, nil
	}
	for i := 0; i < terrain.Len(); i++ {
		if terrain.Passable(uint8(i)) {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("worldgen: terrain table has no passable class")
}

func edgeDistance(c world.Cell, w, h int32) int32 {
	return min(c.X, c.Y, w-1-c.X, h-1-c.Y)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
