package world

// CellChange is one recorded terrain edit.
type CellChange struct {
	Cell  Cell
	Class uint8
}

// ChangeSet accumulates terrain edits in order until its consumer clears it.
// Delivery is at most once per consumption; it is not an event queue.
type ChangeSet struct {
	changes []CellChange
}

func (cs *ChangeSet) record(c Cell, class uint8) {
	cs.changes = append(cs.changes, CellChange{Cell: c, Class: class})
}

// Changes returns the recorded edits in insertion order.
func (cs *ChangeSet) Changes() []CellChange { return cs.changes }

// Len returns the number of recorded edits.
func (cs *ChangeSet) Len() int { return len(cs.changes) }

// Empty reports whether nothing has been recorded.
func (cs *ChangeSet) Empty() bool { return len(cs.changes) == 0 }

// Clear drops all recorded edits, keeping the backing array.
func (cs *ChangeSet) Clear() { cs.changes = cs.changes[:0] }
