package persist

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/l1jgo/navcore/internal/world"
	"golang.org/x/crypto/blake2b"
)

var (
	// ErrDigestMismatch means the cell payload does not hash to the stored digest.
	ErrDigestMismatch = errors.New("grid snapshot digest mismatch")
	// ErrBadSnapshot covers a wrong magic, unknown version or impossible header.
	ErrBadSnapshot = errors.New("bad grid snapshot")
)

const (
	snapshotVersion = 1
	maxSnapshotCell = 1 << 28
)

var snapshotMagic = [4]byte{'N', 'A', 'V', 'G'}

// snapshotHeader precedes the raw cell bytes inside the zstd stream.
type snapshotHeader struct {
	Magic    [4]byte
	Version  uint16
	Width    int32
	Height   int32
	CellSize float64
	Digest   [blake2b.Size256]byte
}

// EncodeGrid writes g as a zstd-compressed snapshot. The terrain table is not
// stored; the loader supplies it.
func EncodeGrid(w io.Writer, g *world.Grid) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	cells := g.Cells()
	hdr := snapshotHeader{
		Magic:    snapshotMagic,
		Version:  snapshotVersion,
		Width:    g.Width(),
		Height:   g.Height(),
		CellSize: g.CellSize(),
		Digest:   blake2b.Sum256(cells),
	}
	if err := binary.Write(enc, binary.LittleEndian, &hdr); err != nil {
		enc.Close()
		return fmt.Errorf("write snapshot header: %w", err)
	}
	if _, err := enc.Write(cells); err != nil {
		enc.Close()
		return fmt.Errorf("write snapshot cells: %w", err)
	}
	return enc.Close()
}

// DecodeGrid reads a snapshot written by EncodeGrid and verifies its digest.
func DecodeGrid(r io.Reader, terrain *world.TerrainTable) (*world.Grid, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()
	br := bufio.NewReaderSize(dec, 64*1024)

	var hdr snapshotHeader
	if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}
	if hdr.Magic != snapshotMagic {
		return nil, fmt.Errorf("magic %q: %w", hdr.Magic[:], ErrBadSnapshot)
	}
	if hdr.Version != snapshotVersion {
		return nil, fmt.Errorf("version %d: %w", hdr.Version, ErrBadSnapshot)
	}
	if hdr.Width <= 0 || hdr.Height <= 0 || int64(hdr.Width)*int64(hdr.Height) > maxSnapshotCell {
		return nil, fmt.Errorf("dimensions %dx%d: %w", hdr.Width, hdr.Height, ErrBadSnapshot)
	}
	if math.IsNaN(hdr.CellSize) {
		return nil, fmt.Errorf("cell size NaN: %w", ErrBadSnapshot)
	}

	cells := make([]uint8, int(hdr.Width)*int(hdr.Height))
	if _, err := io.ReadFull(br, cells); err != nil {
		return nil, fmt.Errorf("read snapshot cells: %w", err)
	}
	if blake2b.Sum256(cells) != hdr.Digest {
		return nil, ErrDigestMismatch
	}

	g, err := world.NewGrid(hdr.Width, hdr.Height, hdr.CellSize, terrain, 0)
	if err != nil {
		return nil, err
	}
	if err := g.LoadCells(cells); err != nil {
		return nil, err
	}
	return g, nil
}

// SaveGridFile writes g to path, creating parent directories.
func SaveGridFile(path string, g *world.Grid) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := EncodeGrid(f, g); err != nil {
		f.Close()
		return fmt.Errorf("save %s: %w", path, err)
	}
	return f.Close()
}

// LoadGridFile reads a snapshot file.
func LoadGridFile(path string, terrain *world.TerrainTable) (*world.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, err := DecodeGrid(f, terrain)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return g, nil
}
