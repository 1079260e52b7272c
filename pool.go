package tpl

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

var poolCounter atomic.Uint64

// PoolScheduler executes callables on a fixed set of worker goroutines
// pulling from a FIFO queue. Schedule never blocks; the queue is unbounded.
//
// Workers start when the pool is constructed and exit on Shutdown, after
// the queue has been drained. Callables run with no pool lock held, so they
// may freely Schedule further work onto the same pool.
type PoolScheduler struct {
	id      string
	workers int

	mu       sync.Mutex
	cond     *sync.Cond
	queue    callableQueue
	shutdown bool

	wg      sync.WaitGroup
	active  atomic.Int32
	history executionHistory

	logger              Logger
	metrics             Metrics
	panicHandler        PanicHandler
	rejectedTaskHandler RejectedTaskHandler
}

var _ Scheduler = (*PoolScheduler)(nil)

// NewPoolScheduler creates a pool with the given worker count and starts
// its workers. A count <= 0 falls back to the hardware parallelism.
func NewPoolScheduler(workers int) *PoolScheduler {
	id := fmt.Sprintf("pool-%d", poolCounter.Add(1))
	return NewPoolSchedulerWithConfig(id, workers, nil)
}

// NewPoolSchedulerWithConfig creates a pool with an explicit ID and
// optional collaborators. A nil config uses defaults.
func NewPoolSchedulerWithConfig(id string, workers int, config *SchedulerConfig) *PoolScheduler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	cfg := config.withDefaults()
	p := &PoolScheduler{
		id:                  id,
		workers:             workers,
		queue:               newCallableQueue(),
		history:             newExecutionHistory(defaultHistoryCapacity),
		logger:              cfg.Logger,
		metrics:             cfg.Metrics,
		panicHandler:        cfg.PanicHandler,
		rejectedTaskHandler: cfg.RejectedTaskHandler,
	}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.workerLoop(i)
	}
	p.logger.LogEvent(LogEvent{
		Level:     LogInfo,
		Message:   "pool scheduler started",
		Scheduler: p.id,
		Worker:    -1,
	})

	return p
}

// ID returns the scheduler's identifier, used as the metrics label.
func (p *PoolScheduler) ID() string {
	return p.id
}

// Schedule enqueues fn for execution by one of the workers. Safe to call
// from arbitrary goroutines. After Shutdown, the callable is rejected and
// handed to the RejectedTaskHandler instead.
func (p *PoolScheduler) Schedule(fn func()) {
	if fn == nil {
		panic("tpl: nil callable scheduled on pool " + p.id)
	}

	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		p.rejectedTaskHandler.HandleRejectedTask(p.id, "shutdown")
		p.metrics.RecordTaskRejected(p.id, "shutdown")
		return
	}
	p.queue.Push(fn)
	depth := p.queue.Len()
	p.mu.Unlock()

	p.metrics.RecordTaskScheduled(p.id)
	p.metrics.RecordQueueDepth(p.id, depth)
	p.cond.Signal()
}

// Shutdown stops the pool and joins its workers. Work already queued is
// still executed before the workers exit; Shutdown returns once the queue
// is empty and every worker has finished. Idempotent.
func (p *PoolScheduler) Shutdown() {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return
	}
	p.shutdown = true
	p.mu.Unlock()

	p.cond.Broadcast()
	p.wg.Wait()
	p.logger.LogEvent(LogEvent{
		Level:     LogInfo,
		Message:   "pool scheduler stopped",
		Scheduler: p.id,
		Worker:    -1,
	})
}

// WorkerCount returns the number of workers.
func (p *PoolScheduler) WorkerCount() int {
	return p.workers
}

// QueuedTaskCount returns the number of callables waiting in the queue.
func (p *PoolScheduler) QueuedTaskCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

// ActiveTaskCount returns the number of callables currently executing.
func (p *PoolScheduler) ActiveTaskCount() int {
	return int(p.active.Load())
}

// Stats returns a snapshot of the pool's runtime state.
func (p *PoolScheduler) Stats() PoolStats {
	p.mu.Lock()
	queued := p.queue.Len()
	running := !p.shutdown
	p.mu.Unlock()

	return PoolStats{
		ID:      p.id,
		Workers: p.workers,
		Queued:  queued,
		Active:  int(p.active.Load()),
		Running: running,
	}
}

// RecentExecutions returns up to limit completed execution records, most
// recent first.
func (p *PoolScheduler) RecentExecutions(limit int) []ExecutionRecord {
	return p.history.Recent(limit)
}

func (p *PoolScheduler) workerLoop(workerID int) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for p.queue.IsEmpty() && !p.shutdown {
			p.cond.Wait()
		}
		// Quit only once shutdown is signalled AND the queue is drained.
		if p.shutdown && p.queue.IsEmpty() {
			p.mu.Unlock()
			return
		}
		fn, _ := p.queue.Pop()
		depth := p.queue.Len()
		p.mu.Unlock()

		p.metrics.RecordQueueDepth(p.id, depth)
		p.runCallable(workerID, fn)
	}
}

// runCallable executes fn with no lock held, recording timing and panic
// outcome before handing any panic to the configured handler.
func (p *PoolScheduler) runCallable(workerID int, fn func()) {
	startedAt := time.Now()
	p.active.Add(1)

	defer func() {
		r := recover()
		finishedAt := time.Now()
		p.active.Add(-1)

		record := ExecutionRecord{
			SchedulerID: p.id,
			WorkerID:    workerID,
			StartedAt:   startedAt,
			FinishedAt:  finishedAt,
			Duration:    finishedAt.Sub(startedAt),
			Panicked:    r != nil,
		}
		p.history.Add(record)
		p.metrics.RecordTaskDuration(p.id, record.Duration)

		if r != nil {
			p.metrics.RecordTaskPanic(p.id, r)
			p.panicHandler.HandlePanic(p.id, workerID, r, debug.Stack())
		}
	}()

	fn()
}
