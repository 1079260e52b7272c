// Package tpl is a typed task-parallel core for Go.
//
// The library composes asynchronous units of work into dependency graphs.
// Three abstractions cooperate: a single-assignment value cell with fan-out
// listeners (Future), a strongly-typed task node over a producer function
// (Task), and a submission endpoint that executes callables (Scheduler).
//
// # Quick Start
//
// Create a pool scheduler and a couple of tasks:
//
//	pool := tpl.NewPoolScheduler(4)
//	defer pool.Shutdown()
//
//	a := tpl.NewTask(func() int { return 40 }, pool)
//	b := tpl.NewTask(func() int { return 2 }, pool)
//	sum := tpl.NewTask2(func(x, y tpl.Task[int]) int {
//		return x.Future().Get() + y.Future().Get()
//	}, pool, a, b)
//
//	a.Start()
//	b.Start()
//	println(sum.Future().Get()) // 42
//
// # Key Concepts
//
// Task: a node in the dependency graph. A leaf task (no parents) must be
// started exactly once with Start. A composite task (NewTask1..NewTask8,
// Then) starts itself when the last of its parents' futures becomes ready;
// starting a composite manually is a contract violation.
//
// Future: a single-assignment cell. Waiters block until the value is set;
// listeners registered with Subscribe fire exactly once with the final
// value, on either the setting or the subscribing goroutine.
//
// Scheduler: where producers run. PoolScheduler executes callables on a
// fixed set of worker goroutines over a FIFO queue; LoopScheduler executes
// them on whatever goroutine is driving Run. Schedulers may be mixed
// freely within one graph and must outlive every task bound to them.
//
// # Lifetime
//
// Handles are cheap copies sharing one node. A composite with un-fired
// parents stays alive through the listener closures registered on those
// parents, so user handles may be dropped immediately after construction
// and the graph still completes. Parent references are released once the
// child's future is ready.
//
// Producers are expected not to panic; a panic reaching a scheduler is
// handled by the scheduler's PanicHandler, which propagates by default.
package tpl
