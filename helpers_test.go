package tpl

import (
	"sync"
	"sync/atomic"
	"time"
)

// recordingMetrics counts every Metrics callback for assertions.
type recordingMetrics struct {
	scheduled atomic.Int32
	durations atomic.Int32
	panics    atomic.Int32
	rejected  atomic.Int32

	mu        sync.Mutex
	lastDepth int
}

func (m *recordingMetrics) RecordTaskScheduled(schedulerID string) {
	m.scheduled.Add(1)
}

func (m *recordingMetrics) RecordTaskDuration(schedulerID string, duration time.Duration) {
	m.durations.Add(1)
}

func (m *recordingMetrics) RecordTaskPanic(schedulerID string, panicInfo any) {
	m.panics.Add(1)
}

func (m *recordingMetrics) RecordQueueDepth(schedulerID string, depth int) {
	m.mu.Lock()
	m.lastDepth = depth
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordTaskRejected(schedulerID string, reason string) {
	m.rejected.Add(1)
}

// recordingRejectedHandler remembers the last rejection.
type recordingRejectedHandler struct {
	count atomic.Int32

	mu         sync.Mutex
	lastReason string
}

func (h *recordingRejectedHandler) HandleRejectedTask(schedulerID string, reason string) {
	h.count.Add(1)
	h.mu.Lock()
	h.lastReason = reason
	h.mu.Unlock()
}

// countingScheduler wraps another scheduler and counts submissions. Used to
// assert which scheduler a producer was bound to.
type countingScheduler struct {
	inner Scheduler
	count atomic.Int32
}

func (s *countingScheduler) Schedule(fn func()) {
	s.count.Add(1)
	s.inner.Schedule(fn)
}

// inlineScheduler runs callables synchronously on the caller. Handy for
// deterministic single-threaded assertions.
type inlineScheduler struct{}

func (inlineScheduler) Schedule(fn func()) {
	fn()
}
