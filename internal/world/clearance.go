package world

import "math"

const (
	// ClearanceTolerance is the overlap slack, in cells, allowed between an
	// agent disc and an impassable cell.
	ClearanceTolerance = 0.25

	// segmentMinStep is the smallest sampling interval along a segment, in cells.
	segmentMinStep = 0.25

	// segmentMaxSamples bounds the work of one SegmentClear call.
	segmentMaxSamples = 50
)

// RadiusForSize converts an agent size (body diameter in cells) to a world-space radius.
func (g *Grid) RadiusForSize(size float64) float64 {
	if size <= 0 {
		return 0
	}
	return size * g.cellSize / 2
}

// PassableForRadius reports whether a disc of the given world radius centred
// at p stays clear of impassable cells. The cell under p must itself be
// passable; every impassable cell within ceil(radius/cellSize) cells (out-of-bounds
// cells included) must be at least radius - tolerance away from p.
func (g *Grid) PassableForRadius(p Vec2, radius float64) bool {
	center, ok := g.CellAt(p)
	if !ok || !g.IsCellPassable(center) {
		return false
	}
	limit := radius - ClearanceTolerance*g.cellSize
	if limit <= 0 {
		return true
	}
	reach := int32(math.Ceil(radius / g.cellSize))
	for dx := -reach; dx <= reach; dx++ {
		for dy := -reach; dy <= reach; dy++ {
			c := Cell{X: center.X + dx, Y: center.Y + dy}
			if g.IsCellPassable(c) {
				continue
			}
			if g.distToCell(p, c) < limit {
				return false
			}
		}
	}
	return true
}

// distToCell returns the distance from p to the nearest point of c's square.
func (g *Grid) distToCell(p Vec2, c Cell) float64 {
	lo := g.cellMin(c)
	nx := clamp(p.X, lo.X, lo.X+g.cellSize)
	ny := clamp(p.Y, lo.Y, lo.Y+g.cellSize)
	return math.Hypot(p.X-nx, p.Y-ny)
}

// SegmentClear samples the segment from→to and requires every sample to pass
// PassableForRadius. The sample spacing is max(radius/2, cellSize/4), with at
// most 50 samples including both endpoints.
func (g *Grid) SegmentClear(from, to Vec2, radius float64) bool {
	step := math.Max(radius*0.5, segmentMinStep*g.cellSize)
	intervals := int(math.Ceil(from.Dist(to) / step))
	if intervals < 1 {
		intervals = 1
	}
	if intervals > segmentMaxSamples-1 {
		intervals = segmentMaxSamples - 1
	}
	for i := 0; i <= intervals; i++ {
		t := float64(i) / float64(intervals)
		if !g.PassableForRadius(from.Lerp(to, t), radius) {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
