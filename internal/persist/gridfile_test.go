package persist

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/l1jgo/navcore/internal/world"
)

func sampleGrid(t *testing.T) *world.Grid {
	t.Helper()
	g, err := world.NewGrid(7, 5, 2.5, world.DefaultTerrainTable(), world.ClassGrass)
	if err != nil {
		t.Fatal(err)
	}
	g.SetCell(world.Cell{X: 3, Y: 1}, world.ClassStone, nil)
	g.SetCell(world.Cell{X: 6, Y: 4}, world.ClassWater, nil)
	return g
}

func TestGridFileRoundTrip(t *testing.T) {
	g := sampleGrid(t)
	path := filepath.Join(t.TempDir(), "maps", "4.navg")
	if err := SaveGridFile(path, g); err != nil {
		t.Fatalf("SaveGridFile: %v", err)
	}
	got, err := LoadGridFile(path, world.DefaultTerrainTable())
	if err != nil {
		t.Fatalf("LoadGridFile: %v", err)
	}
	if got.Width() != 7 || got.Height() != 5 || got.CellSize() != 2.5 {
		t.Fatalf("dims = %dx%d cs %v", got.Width(), got.Height(), got.CellSize())
	}
	if !bytes.Equal(got.Cells(), g.Cells()) {
		t.Error("cells differ after round trip")
	}
	if got.IsCellPassable(world.Cell{X: 3, Y: 1}) {
		t.Error("stone cell passable after load")
	}
}

// rewrite decompresses a snapshot, lets mutate edit the raw bytes and
// compresses it again.
func rewrite(t *testing.T, snap []byte, mutate func(raw []byte)) []byte {
	t.Helper()
	dec, err := zstd.NewReader(bytes.NewReader(snap))
	if err != nil {
		t.Fatal(err)
	}
	raw, err := io.ReadAll(dec)
	dec.Close()
	if err != nil {
		t.Fatal(err)
	}
	mutate(raw)

	var out bytes.Buffer
	enc, err := zstd.NewWriter(&out)
	if err != nil {
		t.Fatal(err)
	}
	enc.Write(raw)
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return out.Bytes()
}

func TestDecodeRejectsCorruption(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeGrid(&buf, sampleGrid(t)); err != nil {
		t.Fatal(err)
	}
	snap := buf.Bytes()

	flipped := rewrite(t, snap, func(raw []byte) { raw[len(raw)-1] ^= 0xFF })
	if _, err := DecodeGrid(bytes.NewReader(flipped), nil); !errors.Is(err, ErrDigestMismatch) {
		t.Errorf("flipped cell: err = %v, want ErrDigestMismatch", err)
	}

	badMagic := rewrite(t, snap, func(raw []byte) { raw[0] = 'X' })
	if _, err := DecodeGrid(bytes.NewReader(badMagic), nil); !errors.Is(err, ErrBadSnapshot) {
		t.Errorf("bad magic: err = %v, want ErrBadSnapshot", err)
	}

	if _, err := DecodeGrid(bytes.NewReader(snap[:len(snap)/2]), nil); err == nil {
		t.Error("truncated snapshot accepted")
	}
}

func TestReplay(t *testing.T) {
	g := sampleGrid(t)
	entries := []JournalEntry{
		{ID: 4, Change: world.CellChange{Cell: world.Cell{X: 1, Y: 1}, Class: world.ClassStone}},
		{ID: 9, Change: world.CellChange{Cell: world.Cell{X: 3, Y: 1}, Class: world.ClassGrass}},
		{ID: 11, Change: world.CellChange{Cell: world.Cell{X: 1, Y: 1}, Class: world.ClassDirt}},
	}
	var cs world.ChangeSet
	if last := Replay(g, entries, &cs); last != 11 {
		t.Errorf("last = %d, want 11", last)
	}
	if cls, _ := g.ClassAt(world.Cell{X: 1, Y: 1}); cls != world.ClassDirt {
		t.Errorf("later entry should win, class = %d", cls)
	}
	if !g.IsCellPassable(world.Cell{X: 3, Y: 1}) || cs.Len() != 3 {
		t.Errorf("replay not applied: changes=%d", cs.Len())
	}
	if Replay(g, nil, nil) != 0 {
		t.Error("empty replay should report 0")
	}
}
