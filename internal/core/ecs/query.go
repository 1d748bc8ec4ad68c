package ecs

// Each2 visits entities that have both A and B, in ascending id order.
// The smaller store drives the walk.
func Each2[A, B any](sa *PtrComponentStore[A], sb *PtrComponentStore[B], fn func(EntityID, *A, *B)) {
	ids := sb.IDs()
	if sa.Len() <= sb.Len() {
		ids = sa.IDs()
	}
	for _, id := range ids {
		a, ok := sa.data[id]
		if !ok {
			continue
		}
		if b, ok := sb.data[id]; ok {
			fn(id, a, b)
		}
	}
}

// Each3 visits entities that have A, B and C, in ascending id order.
// Entities removed by fn before they are reached are skipped.
func Each3[A, B, C any](sa *PtrComponentStore[A], sb *PtrComponentStore[B], sc *PtrComponentStore[C], fn func(EntityID, *A, *B, *C)) {
	var ids []EntityID
	switch {
	case sa.Len() <= sb.Len() && sa.Len() <= sc.Len():
		ids = sa.IDs()
	case sb.Len() <= sc.Len():
		ids = sb.IDs()
	default:
		ids = sc.IDs()
	}
	for _, id := range ids {
		a, ok := sa.data[id]
		if !ok {
			continue
		}
		b, ok := sb.data[id]
		if !ok {
			continue
		}
		if c, ok := sc.data[id]; ok {
			fn(id, a, b, c)
		}
	}
}
