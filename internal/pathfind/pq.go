package pathfind

import "github.com/l1jgo/navcore/internal/world"

type queueItem struct {
	cell world.Cell
	g    int
	f    int
	h    int
	seq  uint64
}

// openQueue is a min-heap on f, then h, then insertion sequence.
type openQueue []*queueItem

func (q openQueue) Len() int { return len(q) }
func (q openQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.h != b.h {
		return a.h < b.h
	}
	return a.seq < b.seq
}
func (q openQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *openQueue) Push(x any) {
	*q = append(*q, x.(*queueItem))
}

func (q *openQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
