package world

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidDimensions is returned when a grid is built with a non-positive size.
var ErrInvalidDimensions = errors.New("invalid grid dimensions")

// Cell addresses one grid cell.
type Cell struct {
	X int32
	Y int32
}

// Vec2 is a world-space position.
type Vec2 struct {
	X float64
	Y float64
}

// Dist returns the Euclidean distance between two points.
func (v Vec2) Dist(o Vec2) float64 {
	return math.Hypot(v.X-o.X, v.Y-o.Y)
}

// Lerp returns the point t of the way from v to o.
func (v Vec2) Lerp(o Vec2, t float64) Vec2 {
	return Vec2{X: v.X + (o.X-v.X)*t, Y: v.Y + (o.Y-v.Y)*t}
}

// Grid holds terrain classes for a width × height cell map.
//
// The world origin sits at the geometric centre of the grid extent: cell (0,0)
// occupies the most negative corner. Grid is owned by the tick goroutine;
// workers only ever see Snapshot copies.
type Grid struct {
	width    int32
	height   int32
	cellSize float64
	halfW    float64
	halfH    float64
	cells    []uint8 // flat [x*height + y], column-major by X
	terrain  *TerrainTable
}

// NewGrid creates a grid with every cell set to fill.
func NewGrid(width, height int32, cellSize float64, terrain *TerrainTable, fill uint8) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("new grid %dx%d: %w", width, height, ErrInvalidDimensions)
	}
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return nil, fmt.Errorf("new grid cell size %v: %w", cellSize, ErrInvalidDimensions)
	}
	if terrain == nil {
		terrain = DefaultTerrainTable()
	}
	g := &Grid{
		width:    width,
		height:   height,
		cellSize: cellSize,
		halfW:    float64(width) * cellSize / 2,
		halfH:    float64(height) * cellSize / 2,
		cells:    make([]uint8, int(width)*int(height)),
		terrain:  terrain,
	}
	if fill != 0 {
		for i := range g.cells {
			g.cells[i] = fill
		}
	}
	return g, nil
}

// Width returns the grid width in cells.
func (g *Grid) Width() int32 { return g.width }

// Height returns the grid height in cells.
func (g *Grid) Height() int32 { return g.height }

// CellSize returns the world-space edge length of one cell.
func (g *Grid) CellSize() float64 { return g.cellSize }

// Terrain returns the shared terrain table.
func (g *Grid) Terrain() *TerrainTable { return g.terrain }

// InBounds reports whether c addresses a cell of this grid.
func (g *Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < g.width && c.Y >= 0 && c.Y < g.height
}

func (g *Grid) index(c Cell) int {
	return int(c.X)*int(g.height) + int(c.Y)
}

// CellAt maps a world position to the cell containing it.
func (g *Grid) CellAt(p Vec2) (Cell, bool) {
	fx := math.Floor((p.X + g.halfW) / g.cellSize)
	fy := math.Floor((p.Y + g.halfH) / g.cellSize)
	if fx < 0 || fy < 0 || fx >= float64(g.width) || fy >= float64(g.height) {
		return Cell{}, false
	}
	return Cell{X: int32(fx), Y: int32(fy)}, true
}

// WorldOf returns the world position of the centre of c.
func (g *Grid) WorldOf(c Cell) Vec2 {
	return Vec2{
		X: float64(c.X)*g.cellSize - g.halfW + g.cellSize/2,
		Y: float64(c.Y)*g.cellSize - g.halfH + g.cellSize/2,
	}
}

// Bounds returns the most negative and most positive corners of the grid extent.
func (g *Grid) Bounds() (lo, hi Vec2) {
	return Vec2{X: -g.halfW, Y: -g.halfH}, Vec2{X: g.halfW, Y: g.halfH}
}

// cellMin returns the world position of the most negative corner of c.
func (g *Grid) cellMin(c Cell) Vec2 {
	return Vec2{
		X: float64(c.X)*g.cellSize - g.halfW,
		Y: float64(c.Y)*g.cellSize - g.halfH,
	}
}

// ClassAt returns the terrain class index of c.
func (g *Grid) ClassAt(c Cell) (uint8, bool) {
	if !g.InBounds(c) {
		return 0, false
	}
	return g.cells[g.index(c)], true
}

// ClassAtWorld returns the terrain class under a world position.
func (g *Grid) ClassAtWorld(p Vec2) (uint8, bool) {
	c, ok := g.CellAt(p)
	if !ok {
		return 0, false
	}
	return g.cells[g.index(c)], true
}

// IsCellPassable is false for out-of-bounds cells and unknown classes.
func (g *Grid) IsCellPassable(c Cell) bool {
	if !g.InBounds(c) {
		return false
	}
	return g.terrain.Passable(g.cells[g.index(c)])
}

// SetCell writes a terrain class and records the edit in cs.
// Out-of-bounds cells are ignored and not recorded.
func (g *Grid) SetCell(c Cell, class uint8, cs *ChangeSet) {
	if !g.InBounds(c) {
		return
	}
	g.cells[g.index(c)] = class
	if cs != nil {
		cs.record(c, class)
	}
}

// SetCellAtWorld is SetCell addressed by world position.
func (g *Grid) SetCellAtWorld(p Vec2, class uint8, cs *ChangeSet) {
	if c, ok := g.CellAt(p); ok {
		g.SetCell(c, class, cs)
	}
}

// DefaultSearchRings is the NearestPassable ring limit used when maxRing <= 0.
const DefaultSearchRings = 20

// NearestPassable searches square rings around p, up to maxRing cells out,
// and returns the centre of the first passable cell found.
func (g *Grid) NearestPassable(p Vec2, maxRing int32) (Vec2, bool) {
	if maxRing <= 0 {
		maxRing = DefaultSearchRings
	}
	center, ok := g.CellAt(p)
	if !ok {
		return Vec2{}, false
	}
	if g.IsCellPassable(center) {
		return g.WorldOf(center), true
	}
	for r := int32(1); r <= maxRing; r++ {
		for dx := -r; dx <= r; dx++ {
			for dy := -r; dy <= r; dy++ {
				if abs32(dx) != r && abs32(dy) != r {
					continue
				}
				c := Cell{X: center.X + dx, Y: center.Y + dy}
				if g.IsCellPassable(c) {
					return g.WorldOf(c), true
				}
			}
		}
	}
	return Vec2{}, false
}

// Snapshot returns a deep copy of the cell data. The terrain table is shared.
func (g *Grid) Snapshot() *Grid {
	cp := *g
	cp.cells = make([]uint8, len(g.cells))
	copy(cp.cells, g.cells)
	return &cp
}

// Cells exposes the raw class array in [x*height + y] order. Callers must not modify it.
func (g *Grid) Cells() []uint8 { return g.cells }

// LoadCells replaces the class array. len(cells) must equal width*height.
func (g *Grid) LoadCells(cells []uint8) error {
	if len(cells) != len(g.cells) {
		return fmt.Errorf("load cells: got %d, want %d", len(cells), len(g.cells))
	}
	copy(g.cells, cells)
	return nil
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
