package data

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/navcore/internal/world"
)

// MapInfo holds metadata for a single map, loaded from map_list.yaml.
type MapInfo struct {
	MapID    int     `yaml:"map_id"`
	Name     string  `yaml:"name"`
	Width    int32   `yaml:"width"`
	Height   int32   `yaml:"height"`
	CellSize float64 `yaml:"cell_size"`
	// TileFile overrides the default {map_id}.txt tile file name.
	TileFile string `yaml:"tile_file"`
}

// MapList is the parsed map_list.yaml.
type MapList struct {
	maps  map[int]MapInfo
	order []int
}

type mapListFile struct {
	Maps []MapInfo `yaml:"maps"`
}

// LoadMapList reads map metadata. Entries with non-positive dimensions are skipped.
func LoadMapList(yamlPath string) (*MapList, error) {
	raw, err := os.ReadFile(yamlPath)
	if err != nil {
		return nil, fmt.Errorf("read map list %s: %w", yamlPath, err)
	}
	var file mapListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse map list: %w", err)
	}

	list := &MapList{maps: make(map[int]MapInfo, len(file.Maps))}
	for _, info := range file.Maps {
		if info.Width <= 0 || info.Height <= 0 {
			continue
		}
		if info.CellSize <= 0 {
			info.CellSize = 1
		}
		if _, dup := list.maps[info.MapID]; dup {
			return nil, fmt.Errorf("map list: duplicate map_id %d", info.MapID)
		}
		list.maps[info.MapID] = info
		list.order = append(list.order, info.MapID)
	}
	return list, nil
}

// Count returns the number of maps listed.
func (l *MapList) Count() int { return len(l.maps) }

// Get returns the metadata for a map.
func (l *MapList) Get(mapID int) (MapInfo, bool) {
	info, ok := l.maps[mapID]
	return info, ok
}

// All returns every map in file order.
func (l *MapList) All() []MapInfo {
	out := make([]MapInfo, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.maps[id])
	}
	return out
}

// TilePath returns the tile file location for info under tileDir.
func TilePath(tileDir string, info MapInfo) string {
	name := info.TileFile
	if name == "" {
		name = strconv.Itoa(info.MapID) + ".txt"
	}
	return filepath.Join(tileDir, name)
}

// LoadGrid builds a grid for info from its tile file.
func LoadGrid(info MapInfo, tileDir string, terrain *world.TerrainTable) (*world.Grid, error) {
	g, err := world.NewGrid(info.Width, info.Height, info.CellSize, terrain, 0)
	if err != nil {
		return nil, fmt.Errorf("map %d: %w", info.MapID, err)
	}
	path := TilePath(tileDir, info)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tiles: %w", err)
	}
	defer f.Close()

	cells, err := ReadTiles(f, info.Width, info.Height, g.Terrain())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := g.LoadCells(cells); err != nil {
		return nil, err
	}
	return g, nil
}

// ReadTiles parses a CSV tile file: one line per row (Y), comma-separated
// class indices per column (X). Blank lines and lines starting with '#' are
// skipped. A row with fewer than width values, or a file with fewer than
// height rows, is an error; extra values and rows are ignored.
func ReadTiles(r io.Reader, width, height int32, terrain *world.TerrainTable) ([]uint8, error) {
	xSize, ySize := int(width), int(height)
	// Flat array: cells[x * ySize + y]
	cells := make([]uint8, xSize*ySize)

	scanner := bufio.NewScanner(r)
	// Wide maps produce long lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	y, lineNo := 0, 0
	for scanner.Scan() && y < ySize {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		x := 0
		for _, tok := range strings.Split(line, ",") {
			if x >= xSize {
				break
			}
			val, err := strconv.ParseUint(strings.TrimSpace(tok), 10, 8)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", lineNo, x+1, err)
			}
			if int(val) >= terrain.Len() {
				return nil, fmt.Errorf("line %d column %d: unknown terrain class %d", lineNo, x+1, val)
			}
			cells[x*ySize+y] = uint8(val)
			x++
		}
		if x < xSize {
			return nil, fmt.Errorf("line %d: row %d has %d of %d columns", lineNo, y, x, xSize)
		}
		y++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if y < ySize {
		return nil, fmt.Errorf("got %d of %d rows", y, ySize)
	}
	return cells, nil
}

// WriteTiles writes g in the format ReadTiles accepts.
func WriteTiles(w io.Writer, g *world.Grid) error {
	bw := bufio.NewWriter(w)
	var sb strings.Builder
	for y := int32(0); y < g.Height(); y++ {
		sb.Reset()
		for x := int32(0); x < g.Width(); x++ {
			if x > 0 {
				sb.WriteByte(',')
			}
			class, _ := g.ClassAt(world.Cell{X: x, Y: y})
			sb.WriteString(strconv.Itoa(int(class)))
		}
		sb.WriteByte('\n')
		if _, err := bw.WriteString(sb.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}
