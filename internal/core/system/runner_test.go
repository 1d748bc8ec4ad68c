package system

import (
	"testing"
	"time"
)

type recorder struct {
	name  string
	phase Phase
	log   *[]string
}

func (r recorder) Phase() Phase           { return r.phase }
func (r recorder) Update(_ time.Duration) { *r.log = append(*r.log, r.name) }

func TestRunnerPhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{"cleanup", PhaseCleanup, &log})
	r.Register(recorder{"collect", PhaseUpdate, &log})
	r.Register(recorder{"dispatch", PhaseUpdate, &log})
	r.Register(recorder{"sync", PhasePreUpdate, &log})
	r.Register(recorder{"events", PhaseInput, &log})

	r.Tick(time.Millisecond)
	want := []string{"events", "sync", "collect", "dispatch", "cleanup"}
	if len(log) != len(want) {
		t.Fatalf("ran %v", log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("step %d = %s, want %s", i, log[i], want[i])
		}
	}

	log = log[:0]
	r.TickPhase(PhaseUpdate, time.Millisecond)
	if len(log) != 2 || log[0] != "collect" || log[1] != "dispatch" {
		t.Errorf("TickPhase ran %v", log)
	}
	if r.Len() != 5 {
		t.Errorf("Len = %d", r.Len())
	}
}
