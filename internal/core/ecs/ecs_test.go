package ecs

import "testing"

func TestEntityPoolNeverIssuesZero(t *testing.T) {
	p := NewEntityPool()
	id := p.Create()
	if id.IsZero() || id.Index() == 0 {
		t.Fatalf("first id = %d", id)
	}
	if p.Alive(0) {
		t.Error("zero id reported alive")
	}
}

func TestEntityPoolGenerations(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	p.Destroy(a)
	if p.Alive(a) {
		t.Fatal("destroyed id still alive")
	}
	b := p.Create()
	if b.Index() != a.Index() || b.Generation() != a.Generation()+1 {
		t.Errorf("reused slot = %d/%d, want %d/%d", b.Index(), b.Generation(), a.Index(), a.Generation()+1)
	}
	p.Destroy(a) // stale
	if !p.Alive(b) || p.Live() != 1 {
		t.Errorf("stale destroy affected the new entity: alive=%v live=%d", p.Alive(b), p.Live())
	}
}

func TestWorldDeferredDestroy(t *testing.T) {
	w := NewWorld()
	names := NewStore[string](w)
	id := w.CreateEntity()
	n := "walker"
	names.Set(id, &n)

	w.MarkForDestruction(id)
	w.MarkForDestruction(id)
	if !w.Alive(id) || w.PendingDestroy() != 2 {
		t.Fatal("entity should stay alive until flush")
	}
	w.FlushDestroyQueue()
	if w.Alive(id) || names.Has(id) || w.Pool().Live() != 0 {
		t.Errorf("after flush: alive=%v has=%v live=%d", w.Alive(id), names.Has(id), w.Pool().Live())
	}
}

func TestEachQueries(t *testing.T) {
	w := NewWorld()
	as, bs, cs := NewStore[int](w), NewStore[int](w), NewStore[int](w)
	var ids []EntityID
	for i := 0; i < 4; i++ {
		id := w.CreateEntity()
		ids = append(ids, id)
		v := i
		as.Set(id, &v)
		if i%2 == 0 {
			bs.Set(id, &v)
		}
		if i == 0 {
			cs.Set(id, &v)
		}
	}

	if w.Registry().Len() != 3 {
		t.Errorf("registry holds %d stores, want 3", w.Registry().Len())
	}

	var visited []EntityID
	Each2(as, bs, func(id EntityID, a, b *int) {
		if *a != *b {
			t.Errorf("mismatched pair %d/%d", *a, *b)
		}
		visited = append(visited, id)
	})
	if len(visited) != 2 || visited[0] != ids[0] || visited[1] != ids[2] {
		t.Errorf("Each2 visited %v, want [%d %d] in order", visited, ids[0], ids[2])
	}

	triples := 0
	Each3(as, bs, cs, func(id EntityID, _, _, _ *int) {
		if id != ids[0] {
			t.Errorf("Each3 visited %d", id)
		}
		triples++
	})
	if triples != 1 {
		t.Errorf("Each3 visited %d, want 1", triples)
	}

	got := as.IDs()
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("IDs not sorted: %v", got)
		}
	}
}
