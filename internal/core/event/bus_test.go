package event

import "testing"

func TestBusDeliversNextTick(t *testing.T) {
	b := NewBus()
	var got []uint64
	Subscribe(b, func(e PathResolved) { got = append(got, e.RequestID) })

	Emit(b, PathResolved{RequestID: 1})
	Emit(b, PathResolved{RequestID: 2})
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatalf("delivered before swap: %v", got)
	}
	if b.Pending() != 2 {
		t.Errorf("Pending = %d", b.Pending())
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got %v", got)
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 2 {
		t.Errorf("events replayed: %v", got)
	}
}

func TestBusTypeOrder(t *testing.T) {
	b := NewBus()
	var seq []string
	Subscribe(b, func(TerrainSynced) { seq = append(seq, "terrain") })
	Subscribe(b, func(PathResolved) { seq = append(seq, "path") })
	Subscribe(b, func(PathResolved) { seq = append(seq, "path2") })

	Emit(b, TerrainSynced{Cells: 1})
	Emit(b, PathResolved{})
	b.SwapBuffers()
	b.DispatchAll()

	want := []string{"terrain", "path", "path2"}
	if len(seq) != len(want) {
		t.Fatalf("seq = %v", seq)
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Errorf("seq[%d] = %s, want %s", i, seq[i], want[i])
		}
	}
}
