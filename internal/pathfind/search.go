// Package pathfind runs clearance-aware A* over a world.Grid.
package pathfind

import (
	"container/heap"
	"context"

	"github.com/l1jgo/navcore/internal/world"
)

// Move costs. Diagonal approximates 10·√2.
const (
	CostStraight = 10
	CostDiagonal = 14
)

// ctxCheckEvery is how many expansions pass between context checks.
const ctxCheckEvery = 256

// neighbourDirs lists the 8 neighbour offsets, orthogonals first.
var neighbourDirs = [8]struct {
	dx, dy int32
	cost   int
}{
	{1, 0, CostStraight}, {-1, 0, CostStraight}, {0, 1, CostStraight}, {0, -1, CostStraight},
	{1, 1, CostDiagonal}, {1, -1, CostDiagonal}, {-1, 1, CostDiagonal}, {-1, -1, CostDiagonal},
}

// Result is the outcome of one search.
type Result struct {
	// Waypoints are cell-centre world positions from start to goal, nil when not found.
	Waypoints []world.Vec2
	Found     bool
	Cost      int
	Expanded  int
	// Truncated marks a search stopped by cancellation or the expansion cap.
	// A truncated miss says nothing about reachability.
	Truncated bool
}

type options struct {
	maxExpansions int
}

// Option configures a search.
type Option func(*options)

// WithMaxExpansions stops the search after n node expansions. 0 means unlimited.
func WithMaxExpansions(n int) Option {
	return func(o *options) {
		if n < 0 {
			n = 0
		}
		o.maxExpansions = n
	}
}

// Octile is the admissible 8-connected distance estimate in move-cost units.
func Octile(a, b world.Cell) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	lo, hi := dx, dy
	if lo > hi {
		lo, hi = hi, lo
	}
	return CostDiagonal*int(lo) + CostStraight*int(hi-lo)
}

// Search finds the least-cost route for an agent of the given size (body
// diameter in cells) between the cells containing start and goal.
//
// Both endpoints are checked at their cell centres, so the result depends only
// on the two cells and the size. The grid must not be mutated while Search runs;
// pass a Snapshot when calling from another goroutine.
func Search(ctx context.Context, g *world.Grid, start, goal world.Vec2, size float64, opts ...Option) Result {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	sc, ok := g.CellAt(start)
	if !ok {
		return Result{}
	}
	gc, ok := g.CellAt(goal)
	if !ok {
		return Result{}
	}
	radius := g.RadiusForSize(size)
	if !g.PassableForRadius(g.WorldOf(sc), radius) || !g.PassableForRadius(g.WorldOf(gc), radius) {
		return Result{}
	}
	if sc == gc {
		return Result{Waypoints: []world.Vec2{g.WorldOf(sc)}, Found: true}
	}

	s := &searcher{
		grid:     g,
		radius:   radius,
		gScore:   map[world.Cell]int{sc: 0},
		cameFrom: make(map[world.Cell]world.Cell),
		closed:   make(map[world.Cell]bool),
		clear:    map[world.Cell]bool{sc: true, gc: true},
	}
	open := make(openQueue, 0, 64)
	h0 := Octile(sc, gc)
	heap.Push(&open, &queueItem{cell: sc, g: 0, f: h0, h: h0, seq: s.nextSeq()})

	expanded := 0
	for open.Len() > 0 {
		cur := heap.Pop(&open).(*queueItem)
		if s.closed[cur.cell] || cur.g > s.gScore[cur.cell] {
			continue
		}
		s.closed[cur.cell] = true
		expanded++

		if cur.cell == gc {
			return Result{
				Waypoints: s.reconstruct(sc, gc),
				Found:     true,
				Cost:      cur.g,
				Expanded:  expanded,
			}
		}
		if o.maxExpansions > 0 && expanded >= o.maxExpansions {
			return Result{Expanded: expanded, Truncated: true}
		}
		if expanded%ctxCheckEvery == 0 && ctx.Err() != nil {
			return Result{Expanded: expanded, Truncated: true}
		}

		from := g.WorldOf(cur.cell)
		for _, d := range neighbourDirs {
			n := world.Cell{X: cur.cell.X + d.dx, Y: cur.cell.Y + d.dy}
			if s.closed[n] {
				continue
			}
			tentative := cur.g + d.cost
			if prev, seen := s.gScore[n]; seen && tentative >= prev {
				continue
			}
			if !s.cellClear(n) || !g.SegmentClear(from, g.WorldOf(n), radius) {
				continue
			}
			s.gScore[n] = tentative
			s.cameFrom[n] = cur.cell
			h := Octile(n, gc)
			heap.Push(&open, &queueItem{cell: n, g: tentative, f: tentative + h, h: h, seq: s.nextSeq()})
		}
	}
	return Result{Expanded: expanded}
}

type searcher struct {
	grid     *world.Grid
	radius   float64
	gScore   map[world.Cell]int
	cameFrom map[world.Cell]world.Cell
	closed   map[world.Cell]bool
	clear    map[world.Cell]bool
	seq      uint64
}

func (s *searcher) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// cellClear memoises PassableForRadius at cell centres for the search.
func (s *searcher) cellClear(c world.Cell) bool {
	if v, ok := s.clear[c]; ok {
		return v
	}
	v := s.grid.InBounds(c) && s.grid.PassableForRadius(s.grid.WorldOf(c), s.radius)
	s.clear[c] = v
	return v
}

func (s *searcher) reconstruct(start, goal world.Cell) []world.Vec2 {
	cells := []world.Cell{goal}
	for cur := goal; cur != start; {
		prev, ok := s.cameFrom[cur]
		if !ok {
			break
		}
		cells = append(cells, prev)
		cur = prev
	}
	out := make([]world.Vec2, len(cells))
	for i, c := range cells {
		out[len(cells)-1-i] = s.grid.WorldOf(c)
	}
	return out
}
