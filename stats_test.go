package tpl

import (
	"testing"
	"time"
)

// TestExecutionHistory_RingBehavior verifies the ring buffer semantics
// Given: A small-capacity history with more records added than it holds
// When: Recent and Last are queried
// Then: Only the newest records survive, most recent first
func TestExecutionHistory_RingBehavior(t *testing.T) {
	h := newExecutionHistory(3)

	if _, ok := h.Last(); ok {
		t.Fatal("Last on an empty history should report no record")
	}

	base := time.Now()
	for i := 0; i < 5; i++ {
		h.Add(ExecutionRecord{
			SchedulerID: "pool-a",
			WorkerID:    i,
			StartedAt:   base.Add(time.Duration(i) * time.Millisecond),
		})
	}

	records := h.Recent(0)
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	// Most recent first: workers 4, 3, 2 survive.
	for i, want := range []int{4, 3, 2} {
		if records[i].WorkerID != want {
			t.Fatalf("records[%d].WorkerID = %d, want %d", i, records[i].WorkerID, want)
		}
	}

	last, ok := h.Last()
	if !ok || last.WorkerID != 4 {
		t.Fatalf("Last = (%v, %v), want worker 4", last.WorkerID, ok)
	}
}

// TestExecutionHistory_LimitClamping verifies Recent's limit handling
func TestExecutionHistory_LimitClamping(t *testing.T) {
	h := newExecutionHistory(10)
	for i := 0; i < 4; i++ {
		h.Add(ExecutionRecord{WorkerID: i})
	}

	if got := len(h.Recent(2)); got != 2 {
		t.Fatalf("Recent(2) = %d records, want 2", got)
	}
	if got := len(h.Recent(100)); got != 4 {
		t.Fatalf("Recent(100) = %d records, want 4", got)
	}
	if got := len(h.Recent(-1)); got != 4 {
		t.Fatalf("Recent(-1) = %d records, want 4", got)
	}
}
