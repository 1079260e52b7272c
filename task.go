package tpl

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// TaskID uniquely identifies a task node, for debugging and observability.
type TaskID struct {
	value uuid.UUID
}

// GenerateTaskID creates a new unique TaskID.
func GenerateTaskID() TaskID {
	return TaskID{value: uuid.New()}
}

// IsZero reports whether the ID is the zero TaskID.
func (id TaskID) IsZero() bool {
	return id.value == uuid.Nil
}

func (id TaskID) String() string {
	return id.value.String()
}

// taskNode is the shared state behind every Task handle. Handles, pending
// parent-listener closures, and in-flight scheduler submissions all hold
// ordinary strong references to it; the node stays reachable exactly as
// long as some consumer still needs its value.
type taskNode[T any] struct {
	fn        func() T
	scheduler Scheduler
	future    *Future[T]
	id        TaskID

	mu   sync.Mutex
	name string

	started atomic.Bool

	// composite nodes start themselves when the last parent completes;
	// starting one manually is a contract violation.
	composite bool
}

func newTaskNode[T any](fn func() T, s Scheduler) *taskNode[T] {
	return &taskNode[T]{
		fn:        fn,
		scheduler: s,
		future:    NewFuture[T](),
		id:        GenerateTaskID(),
	}
}

// start submits the node to its scheduler. The scheduled closure holds the
// node strongly for the duration of dispatch and execution.
func (n *taskNode[T]) start() {
	if n.started.Swap(true) {
		panic("tpl: task " + n.describe() + " started twice")
	}
	n.scheduler.Schedule(n.run)
}

// run invokes the producer, drops the producer reference once it has
// returned (releasing everything the thunk captured), then publishes the
// value.
func (n *taskNode[T]) run() {
	fn := n.fn
	value := fn()
	n.fn = nil
	n.future.Set(value)
}

func (n *taskNode[T]) describe() string {
	n.mu.Lock()
	name := n.name
	n.mu.Unlock()
	if name != "" {
		return name
	}
	return n.id.String()
}

// Task is a cheaply copyable strong reference to a task node. Copies share
// the node and its lifetime. The zero value is an invalid handle.
type Task[T any] struct {
	node *taskNode[T]
}

// Valid reports whether the handle references a node.
func (t Task[T]) Valid() bool {
	return t.node != nil
}

func (t Task[T]) mustBeValid() {
	if t.node == nil {
		panic("tpl: operation on invalid task handle")
	}
}

// Start submits a leaf task to its scheduler. Every leaf must be started
// exactly once; starting twice panics. Composite tasks start automatically
// when their last parent completes, so starting one manually also panics.
func (t Task[T]) Start() {
	t.mustBeValid()
	if t.node.composite {
		panic("tpl: composite task " + t.node.describe() + " starts automatically when its parents complete")
	}
	t.node.start()
}

// Future returns the cell that will hold the task's result.
func (t Task[T]) Future() *Future[T] {
	t.mustBeValid()
	return t.node.future
}

// Scheduler returns the scheduler the task is bound to.
func (t Task[T]) Scheduler() Scheduler {
	t.mustBeValid()
	return t.node.scheduler
}

// ID returns the task's unique identifier.
func (t Task[T]) ID() TaskID {
	t.mustBeValid()
	return t.node.id
}

// Name returns the task's debug name, or "" if none was set.
func (t Task[T]) Name() string {
	t.mustBeValid()
	t.node.mu.Lock()
	defer t.node.mu.Unlock()
	return t.node.name
}

// SetName sets the task's debug name. The name shows up in panic messages
// and String.
func (t Task[T]) SetName(name string) {
	t.mustBeValid()
	t.node.mu.Lock()
	t.node.name = name
	t.node.mu.Unlock()
}

func (t Task[T]) String() string {
	if t.node == nil {
		return "task(invalid)"
	}
	return "task(" + t.node.describe() + ")"
}

// NewTask creates a leaf task over fn, bound to s. The task is not
// submitted until Start is called. A nil scheduler selects the process-wide
// default; nil with no default set panics.
func NewTask[T any](fn func() T, s Scheduler) Task[T] {
	if fn == nil {
		panic("tpl: nil producer")
	}
	return Task[T]{node: newTaskNode(fn, resolveScheduler(s))}
}

// NewTaskAndStart creates a leaf task and immediately starts it.
func NewTaskAndStart[T any](fn func() T, s Scheduler) Task[T] {
	t := NewTask(fn, s)
	t.node.start()
	return t
}

// NewValueTask creates an already-completed task whose future holds value.
// The node has no producer and is never submitted to the scheduler. Useful
// for injecting literals into a continuation chain.
func NewValueTask[T any](value T, s Scheduler) Task[T] {
	n := &taskNode[T]{
		scheduler: resolveScheduler(s),
		future:    NewReadyFuture(value),
		id:        GenerateTaskID(),
	}
	n.started.Store(true)
	return Task[T]{node: n}
}

// Then creates a one-parent composite whose producer receives t once t's
// future is ready. The continuation inherits t's scheduler.
func Then[T, U any](t Task[T], fn func(Task[T]) U) Task[U] {
	return ThenOn(t, fn, nil)
}

// ThenOn is Then with an explicit scheduler. A nil scheduler falls back to
// t's scheduler, not the process-wide default.
func ThenOn[T, U any](t Task[T], fn func(Task[T]) U, s Scheduler) Task[U] {
	t.mustBeValid()
	if s == nil {
		s = t.node.scheduler
	}
	return NewTask1(fn, s, t)
}

// Unwrap flattens a task whose value is itself a task. The returned proxy
// task completes with the inner task's value, on the outer task's
// scheduler binding.
//
// The proxy is never submitted to its scheduler; its future is forwarded
// through chained subscriptions, which keep the proxy and the inner task
// alive until the value has crossed over. An inner value type of Void is
// permitted.
func Unwrap[U any](outer Task[Task[U]]) Task[U] {
	return UnwrapOn(outer, nil)
}

// UnwrapOn is Unwrap with an explicit scheduler binding for the proxy.
// A nil scheduler falls back to the outer task's scheduler.
func UnwrapOn[U any](outer Task[Task[U]], s Scheduler) Task[U] {
	outer.mustBeValid()
	if s == nil {
		s = outer.node.scheduler
	}

	proxy := &taskNode[U]{
		scheduler: s,
		future:    NewFuture[U](),
		id:        GenerateTaskID(),
	}
	// Marked started: the proxy does not expect to be scheduled.
	proxy.started.Store(true)

	outer.node.future.Subscribe(func(inner Task[U]) {
		if !inner.Valid() {
			panic("tpl: unwrap: outer task produced an invalid inner task")
		}
		inner.node.future.Subscribe(func(value U) {
			proxy.future.Set(value)
		})
	})

	return Task[U]{node: proxy}
}
