package worldgen

import (
	"bytes"
	"testing"

	"github.com/l1jgo/navcore/internal/world"
)

func TestGenerateDeterministic(t *testing.T) {
	p := Params{Width: 48, Height: 32, Seed: 42}
	a, err := Generate(p, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, _ := Generate(p, nil)
	if !bytes.Equal(a.Cells(), b.Cells()) {
		t.Error("same seed produced different maps")
	}
	p.Seed = 43
	c, _ := Generate(p, nil)
	if bytes.Equal(a.Cells(), c.Cells()) {
		t.Error("different seeds produced identical maps")
	}
}

func TestGenerateBorderAndSpawn(t *testing.T) {
	g, err := Generate(Params{Width: 20, Height: 16, Seed: 7, SpawnRadius: 3}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for x := int32(0); x < 20; x++ {
		for _, y := range []int32{0, 15} {
			if class, _ := g.ClassAt(world.Cell{X: x, Y: y}); class != world.ClassWater {
				t.Fatalf("border cell (%d,%d) = %d", x, y, class)
			}
		}
	}
	for x := int32(7); x <= 13; x++ {
		for y := int32(5); y <= 11; y++ {
			if class, _ := g.ClassAt(world.Cell{X: x, Y: y}); class != world.ClassGrass {
				t.Fatalf("spawn cell (%d,%d) = %d", x, y, class)
			}
		}
	}
	centre := g.WorldOf(world.Cell{X: 10, Y: 8})
	if !g.PassableForRadius(centre, g.RadiusForSize(2)) {
		t.Error("spawn area should fit a size-2 agent")
	}
}

func TestGenerateDisabledBorder(t *testing.T) {
	g, err := Generate(Params{Width: 8, Height: 8, BorderWidth: -1, SpawnRadius: -1, Border: "lava"}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, class := range g.Cells() {
		if int(class) >= g.Terrain().Len() {
			t.Fatalf("class %d out of table", class)
		}
	}
	if _, err := Generate(Params{Width: 8, Height: 8, Border: "lava"}, nil); err == nil {
		t.Error("unknown border class accepted")
	}
	if _, err := Generate(Params{Width: 0, Height: 8}, nil); err == nil {
		t.Error("zero width accepted")
	}
}

func TestNoiseRange(t *testing.T) {
	p := Params{Seed: 99}
	for x := int32(-50); x < 50; x += 7 {
		for y := int32(-50); y < 50; y += 5 {
			if e := Elevation(p, x, y); e < 0 || e >= 1 {
				t.Fatalf("Elevation(%d,%d) = %v", x, y, e)
			}
		}
	}
}
