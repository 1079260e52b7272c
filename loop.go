package tpl

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"
)

var loopCounter atomic.Uint64

// LoopScheduler executes callables serially on whatever goroutine is
// driving Run. Schedule enqueues from any goroutine; Run dequeues and
// invokes until Stop has been signalled and the queue is empty.
//
// Only one goroutine may drive Run at a time. After Run returns it may be
// driven again; callables scheduled in between stay queued until then.
type LoopScheduler struct {
	id string

	mu            sync.Mutex
	cond          *sync.Cond
	queue         callableQueue
	stopRequested bool

	// goroutine id of the current driver, 0 when nobody is inside Run.
	driver atomic.Int64

	logger       Logger
	metrics      Metrics
	panicHandler PanicHandler
}

var _ Scheduler = (*LoopScheduler)(nil)

// NewLoopScheduler creates a caller-driven loop scheduler.
func NewLoopScheduler() *LoopScheduler {
	id := fmt.Sprintf("loop-%d", loopCounter.Add(1))
	return NewLoopSchedulerWithConfig(id, nil)
}

// NewLoopSchedulerWithConfig creates a loop scheduler with an explicit ID
// and optional collaborators. A nil config uses defaults.
func NewLoopSchedulerWithConfig(id string, config *SchedulerConfig) *LoopScheduler {
	cfg := config.withDefaults()
	l := &LoopScheduler{
		id:           id,
		queue:        newCallableQueue(),
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		panicHandler: cfg.PanicHandler,
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// ID returns the scheduler's identifier, used as the metrics label.
func (l *LoopScheduler) ID() string {
	return l.id
}

// Schedule enqueues fn. Safe to call from arbitrary goroutines, including
// from a callable already running on the loop.
func (l *LoopScheduler) Schedule(fn func()) {
	if fn == nil {
		panic("tpl: nil callable scheduled on loop " + l.id)
	}

	l.mu.Lock()
	l.queue.Push(fn)
	depth := l.queue.Len()
	l.mu.Unlock()

	l.metrics.RecordTaskScheduled(l.id)
	l.metrics.RecordQueueDepth(l.id, depth)
	l.cond.Signal()
}

// Run drives the loop on the calling goroutine. It blocks, invoking queued
// callables in FIFO order, and returns once Stop has been called and the
// queue has drained. The stop signal is consumed when Run returns, so the
// loop can be driven again afterwards; a Stop issued while nobody is
// driving makes the next Run return as soon as the queue is empty. Driving
// Run from two goroutines at once is a contract violation.
func (l *LoopScheduler) Run() {
	gid := goid.Get()
	if !l.driver.CompareAndSwap(0, gid) {
		panic("tpl: loop " + l.id + " is already being driven by another goroutine")
	}
	defer l.driver.Store(0)

	l.logger.LogEvent(LogEvent{
		Level:     LogDebug,
		Message:   "loop running",
		Scheduler: l.id,
		Worker:    -1,
	})

	for {
		l.mu.Lock()
		for l.queue.IsEmpty() && !l.stopRequested {
			l.cond.Wait()
		}
		if l.stopRequested && l.queue.IsEmpty() {
			// Consume the stop so the loop can be driven again later.
			l.stopRequested = false
			l.mu.Unlock()
			l.logger.LogEvent(LogEvent{
				Level:     LogDebug,
				Message:   "loop stopped",
				Scheduler: l.id,
				Worker:    -1,
			})
			return
		}
		fn, _ := l.queue.Pop()
		depth := l.queue.Len()
		l.mu.Unlock()

		l.metrics.RecordQueueDepth(l.id, depth)
		l.runCallable(fn)
	}
}

// Stop asks Run to return once the queue is empty. Safe to call from any
// goroutine, including from a callable running on the loop.
func (l *LoopScheduler) Stop() {
	l.mu.Lock()
	l.stopRequested = true
	l.mu.Unlock()
	l.cond.Broadcast()
}

// OnLoop reports whether the calling goroutine is the one currently
// driving Run.
func (l *LoopScheduler) OnLoop() bool {
	d := l.driver.Load()
	return d != 0 && d == goid.Get()
}

// QueuedTaskCount returns the number of callables waiting in the queue.
func (l *LoopScheduler) QueuedTaskCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queue.Len()
}

// Stats returns a snapshot of the loop's runtime state.
func (l *LoopScheduler) Stats() LoopStats {
	l.mu.Lock()
	queued := l.queue.Len()
	l.mu.Unlock()

	return LoopStats{
		ID:      l.id,
		Queued:  queued,
		Running: l.driver.Load() != 0,
	}
}

func (l *LoopScheduler) runCallable(fn func()) {
	startedAt := time.Now()

	defer func() {
		r := recover()
		l.metrics.RecordTaskDuration(l.id, time.Since(startedAt))
		if r != nil {
			l.metrics.RecordTaskPanic(l.id, r)
			l.panicHandler.HandlePanic(l.id, -1, r, debug.Stack())
		}
	}()

	fn()
}
