package world

import (
	"errors"
	"testing"
)

func mustGrid(t *testing.T, w, h int32, cellSize float64, fill uint8) *Grid {
	t.Helper()
	g, err := NewGrid(w, h, cellSize, DefaultTerrainTable(), fill)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return g
}

func TestNewGridRejectsBadDimensions(t *testing.T) {
	cases := []struct {
		w, h int32
		cs   float64
	}{
		{0, 5, 1}, {5, -1, 1}, {5, 5, 0}, {5, 5, -2},
	}
	for _, c := range cases {
		if _, err := NewGrid(c.w, c.h, c.cs, nil, 0); !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("NewGrid(%d,%d,%v) err = %v, want ErrInvalidDimensions", c.w, c.h, c.cs, err)
		}
	}
}

func TestCellRoundTrip(t *testing.T) {
	for _, dims := range []struct {
		w, h int32
		cs   float64
	}{
		{5, 5, 32}, {7, 3, 1.5}, {10, 10, 1}, {33, 17, 0.3},
	} {
		g := mustGrid(t, dims.w, dims.h, dims.cs, ClassGrass)
		for x := int32(0); x < dims.w; x++ {
			for y := int32(0); y < dims.h; y++ {
				c := Cell{X: x, Y: y}
				got, ok := g.CellAt(g.WorldOf(c))
				if !ok || got != c {
					t.Fatalf("%dx%d@%v: CellAt(WorldOf(%v)) = %v,%v", dims.w, dims.h, dims.cs, c, got, ok)
				}
			}
		}
	}
}

func TestOriginIsGridCentre(t *testing.T) {
	g := mustGrid(t, 4, 4, 10, ClassGrass)
	if got := g.WorldOf(Cell{0, 0}); got != (Vec2{-15, -15}) {
		t.Errorf("WorldOf(0,0) = %v", got)
	}
	if got := g.WorldOf(Cell{3, 3}); got != (Vec2{15, 15}) {
		t.Errorf("WorldOf(3,3) = %v", got)
	}
	if c, ok := g.CellAt(Vec2{}); !ok || c != (Cell{2, 2}) {
		t.Errorf("CellAt(origin) = %v,%v", c, ok)
	}
	lo, hi := g.Bounds()
	if lo != (Vec2{-20, -20}) || hi != (Vec2{20, 20}) {
		t.Errorf("Bounds = %v,%v", lo, hi)
	}
}

func TestCellAtOutOfBounds(t *testing.T) {
	g := mustGrid(t, 4, 4, 10, ClassGrass)
	for _, p := range []Vec2{{20, 0}, {0, 20}, {-20.01, 0}, {0, -25}, {100, 100}} {
		if c, ok := g.CellAt(p); ok {
			t.Errorf("CellAt(%v) = %v, want out of bounds", p, c)
		}
	}
	if c, ok := g.CellAt(Vec2{-20, -20}); !ok || c != (Cell{0, 0}) {
		t.Errorf("CellAt(corner) = %v,%v", c, ok)
	}
}

func TestIsCellPassable(t *testing.T) {
	g := mustGrid(t, 3, 3, 1, ClassGrass)
	g.SetCell(Cell{1, 1}, ClassStone, nil)
	g.SetCell(Cell{2, 2}, 42, nil)

	cases := []struct {
		c    Cell
		want bool
	}{
		{Cell{0, 0}, true},
		{Cell{1, 1}, false},
		{Cell{2, 2}, false}, // unknown class
		{Cell{-1, 0}, false},
		{Cell{3, 0}, false},
		{Cell{0, 3}, false},
	}
	for _, c := range cases {
		if got := g.IsCellPassable(c.c); got != c.want {
			t.Errorf("IsCellPassable(%v) = %v, want %v", c.c, got, c.want)
		}
	}
}

func TestSetCellRecordsChanges(t *testing.T) {
	g := mustGrid(t, 3, 3, 1, ClassGrass)
	var cs ChangeSet

	g.SetCell(Cell{0, 1}, ClassStone, &cs)
	g.SetCell(Cell{5, 5}, ClassStone, &cs)
	g.SetCell(Cell{-1, 0}, ClassStone, &cs)
	g.SetCellAtWorld(g.WorldOf(Cell{2, 2}), ClassWater, &cs)

	want := []CellChange{{Cell{0, 1}, ClassStone}, {Cell{2, 2}, ClassWater}}
	got := cs.Changes()
	if len(got) != len(want) {
		t.Fatalf("changes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("change %d = %v, want %v", i, got[i], want[i])
		}
	}
	if class, _ := g.ClassAt(Cell{2, 2}); class != ClassWater {
		t.Errorf("ClassAt(2,2) = %d", class)
	}

	cs.Clear()
	if !cs.Empty() {
		t.Errorf("Clear left %d changes", cs.Len())
	}
}

func TestNearestPassable(t *testing.T) {
	g := mustGrid(t, 7, 7, 32, ClassStone)
	g.SetCell(Cell{5, 2}, ClassGrass, nil)

	got, ok := g.NearestPassable(g.WorldOf(Cell{3, 3}), 20)
	if !ok || got != g.WorldOf(Cell{5, 2}) {
		t.Fatalf("NearestPassable = %v,%v, want %v", got, ok, g.WorldOf(Cell{5, 2}))
	}

	if _, ok := g.NearestPassable(g.WorldOf(Cell{3, 3}), 1); ok {
		t.Error("NearestPassable within one ring should fail")
	}
	if _, ok := g.NearestPassable(g.WorldOf(Cell{3, 3}), 0); !ok {
		t.Error("maxRing 0 should fall back to the default ring count")
	}

	g.SetCell(Cell{5, 2}, ClassStone, nil)
	if _, ok := g.NearestPassable(g.WorldOf(Cell{3, 3}), 20); ok {
		t.Error("NearestPassable on an all-stone grid should fail")
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	g := mustGrid(t, 4, 4, 1, ClassGrass)
	snap := g.Snapshot()
	g.SetCell(Cell{1, 1}, ClassStone, nil)

	if !snap.IsCellPassable(Cell{1, 1}) {
		t.Error("snapshot observed a later edit")
	}
	if snap.Terrain() != g.Terrain() {
		t.Error("snapshot should share the terrain table")
	}
}

func TestTerrainTable(t *testing.T) {
	tt := DefaultTerrainTable()
	for name, want := range map[string]bool{"grass": true, "dirt": true, "stone": false, "water": false} {
		idx, ok := tt.Lookup(name)
		if !ok {
			t.Fatalf("Lookup(%q) missing", name)
		}
		if tt.Passable(idx) != want {
			t.Errorf("%s passable = %v, want %v", name, !want, want)
		}
	}
	if tt.Passable(200) {
		t.Error("unknown class reported passable")
	}
	if idx, ok := tt.ForElevation(0.1); !ok || idx != ClassWater {
		t.Errorf("ForElevation(0.1) = %d,%v", idx, ok)
	}
	if idx, ok := tt.ForElevation(1.0); !ok || idx != ClassStone {
		t.Errorf("ForElevation(1.0) = %d,%v", idx, ok)
	}
	if _, err := NewTerrainTable([]TerrainClass{{Name: "a"}, {Name: "a"}}); err == nil {
		t.Error("duplicate names accepted")
	}
}
