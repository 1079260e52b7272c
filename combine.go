package tpl

import "sync/atomic"

// Composite constructors. Go has no variadic type parameters, so the typed
// parent list is spelled out per arity; NewTask1 through NewTask8 cover
// realistic fan-in widths.
//
// Every constructor follows the same wiring: allocate a dependency context
// holding the pending-parent counter and one strong slot per parent, wrap
// the user producer in a thunk that reads the populated slots, and
// subscribe one closure per parent. Each closure pins its parent into its
// slot and decrements the counter; whichever goroutine takes the counter to
// zero registers a release listener on the child's own future (the parent
// slots are dropped only once the child's value is published) and starts
// the child. The child is therefore scheduled exactly once, only after
// every parent's future is ready, and the user may drop all parent handles
// immediately after construction.

// awaitParent wires one parent of a composite. The subscription closure
// holds the parent strongly until the child can read its value; weakening
// this reference would let an otherwise-unreferenced parent disappear
// before the child's producer runs.
func awaitParent[T, P any](child *taskNode[T], pending *atomic.Int32, slot *Task[P], parent Task[P], release func(T)) {
	parent.node.future.Subscribe(func(P) {
		*slot = parent
		if pending.Add(-1) == 0 {
			child.future.Subscribe(release)
			child.start()
		}
	})
}

func newComposite[T any](s Scheduler) *taskNode[T] {
	child := newTaskNode[T](nil, s)
	child.composite = true
	return child
}

type depContext1[A any] struct {
	pending atomic.Int32
	a       Task[A]
}

// NewTask1 creates a composite task with one parent.
func NewTask1[T, A any](fn func(Task[A]) T, s Scheduler, a Task[A]) Task[T] {
	s = resolveScheduler(s)
	a.mustBeValid()

	if fn == nil {
		panic("tpl: nil producer")
	}
	child := newComposite[T](s)
	deps := &depContext1[A]{}
	deps.pending.Store(1)
	child.fn = func() T { return fn(deps.a) }
	release := func(T) { deps.a = Task[A]{} }

	awaitParent(child, &deps.pending, &deps.a, a, release)
	return Task[T]{node: child}
}

type depContext2[A, B any] struct {
	pending atomic.Int32
	a       Task[A]
	b       Task[B]
}

// NewTask2 creates a composite task with two parents.
func NewTask2[T, A, B any](fn func(Task[A], Task[B]) T, s Scheduler, a Task[A], b Task[B]) Task[T] {
	s = resolveScheduler(s)
	a.mustBeValid()
	b.mustBeValid()

	if fn == nil {
		panic("tpl: nil producer")
	}
	child := newComposite[T](s)
	deps := &depContext2[A, B]{}
	deps.pending.Store(2)
	child.fn = func() T { return fn(deps.a, deps.b) }
	release := func(T) {
		deps.a = Task[A]{}
		deps.b = Task[B]{}
	}

	awaitParent(child, &deps.pending, &deps.a, a, release)
	awaitParent(child, &deps.pending, &deps.b, b, release)
	return Task[T]{node: child}
}

type depContext3[A, B, C any] struct {
	pending atomic.Int32
	a       Task[A]
	b       Task[B]
	c       Task[C]
}

// NewTask3 creates a composite task with three parents.
func NewTask3[T, A, B, C any](fn func(Task[A], Task[B], Task[C]) T, s Scheduler, a Task[A], b Task[B], c Task[C]) Task[T] {
	s = resolveScheduler(s)
	a.mustBeValid()
	b.mustBeValid()
	c.mustBeValid()

	if fn == nil {
		panic("tpl: nil producer")
	}
	child := newComposite[T](s)
	deps := &depContext3[A, B, C]{}
	deps.pending.Store(3)
	child.fn = func() T { return fn(deps.a, deps.b, deps.c) }
	release := func(T) {
		deps.a = Task[A]{}
		deps.b = Task[B]{}
		deps.c = Task[C]{}
	}

	awaitParent(child, &deps.pending, &deps.a, a, release)
	awaitParent(child, &deps.pending, &deps.b, b, release)
	awaitParent(child, &deps.pending, &deps.c, c, release)
	return Task[T]{node: child}
}

type depContext4[A, B, C, D any] struct {
	pending atomic.Int32
	a       Task[A]
	b       Task[B]
	c       Task[C]
	d       Task[D]
}

// NewTask4 creates a composite task with four parents.
func NewTask4[T, A, B, C, D any](fn func(Task[A], Task[B], Task[C], Task[D]) T, s Scheduler, a Task[A], b Task[B], c Task[C], d Task[D]) Task[T] {
	s = resolveScheduler(s)
	a.mustBeValid()
	b.mustBeValid()
	c.mustBeValid()
	d.mustBeValid()

	if fn == nil {
		panic("tpl: nil producer")
	}
	child := newComposite[T](s)
	deps := &depContext4[A, B, C, D]{}
	deps.pending.Store(4)
	child.fn = func() T { return fn(deps.a, deps.b, deps.c, deps.d) }
	release := func(T) {
		deps.a = Task[A]{}
		deps.b = Task[B]{}
		deps.c = Task[C]{}
		deps.d = Task[D]{}
	}

	awaitParent(child, &deps.pending, &deps.a, a, release)
	awaitParent(child, &deps.pending, &deps.b, b, release)
	awaitParent(child, &deps.pending, &deps.c, c, release)
	awaitParent(child, &deps.pending, &deps.d, d, release)
	return Task[T]{node: child}
}

type depContext5[A, B, C, D, E any] struct {
	pending atomic.Int32
	a       Task[A]
	b       Task[B]
	c       Task[C]
	d       Task[D]
	e       Task[E]
}

// NewTask5 creates a composite task with five parents.
func NewTask5[T, A, B, C, D, E any](fn func(Task[A], Task[B], Task[C], Task[D], Task[E]) T, s Scheduler, a Task[A], b Task[B], c Task[C], d Task[D], e Task[E]) Task[T] {
	s = resolveScheduler(s)
	a.mustBeValid()
	b.mustBeValid()
	c.mustBeValid()
	d.mustBeValid()
	e.mustBeValid()

	if fn == nil {
		panic("tpl: nil producer")
	}
	child := newComposite[T](s)
	deps := &depContext5[A, B, C, D, E]{}
	deps.pending.Store(5)
	child.fn = func() T { return fn(deps.a, deps.b, deps.c, deps.d, deps.e) }
	release := func(T) {
		deps.a = Task[A]{}
		deps.b = Task[B]{}
		deps.c = Task[C]{}
		deps.d = Task[D]{}
		deps.e = Task[E]{}
	}

	awaitParent(child, &deps.pending, &deps.a, a, release)
	awaitParent(child, &deps.pending, &deps.b, b, release)
	awaitParent(child, &deps.pending, &deps.c, c, release)
	awaitParent(child, &deps.pending, &deps.d, d, release)
	awaitParent(child, &deps.pending, &deps.e, e, release)
	return Task[T]{node: child}
}

type depContext6[A, B, C, D, E, G any] struct {
	pending atomic.Int32
	a       Task[A]
	b       Task[B]
	c       Task[C]
	d       Task[D]
	e       Task[E]
	g       Task[G]
}

// NewTask6 creates a composite task with six parents.
func NewTask6[T, A, B, C, D, E, G any](fn func(Task[A], Task[B], Task[C], Task[D], Task[E], Task[G]) T, s Scheduler, a Task[A], b Task[B], c Task[C], d Task[D], e Task[E], g Task[G]) Task[T] {
	s = resolveScheduler(s)
	a.mustBeValid()
	b.mustBeValid()
	c.mustBeValid()
	d.mustBeValid()
	e.mustBeValid()
	g.mustBeValid()

	if fn == nil {
		panic("tpl: nil producer")
	}
	child := newComposite[T](s)
	deps := &depContext6[A, B, C, D, E, G]{}
	deps.pending.Store(6)
	child.fn = func() T { return fn(deps.a, deps.b, deps.c, deps.d, deps.e, deps.g) }
	release := func(T) {
		deps.a = Task[A]{}
		deps.b = Task[B]{}
		deps.c = Task[C]{}
		deps.d = Task[D]{}
		deps.e = Task[E]{}
		deps.g = Task[G]{}
	}

	awaitParent(child, &deps.pending, &deps.a, a, release)
	awaitParent(child, &deps.pending, &deps.b, b, release)
	awaitParent(child, &deps.pending, &deps.c, c, release)
	awaitParent(child, &deps.pending, &deps.d, d, release)
	awaitParent(child, &deps.pending, &deps.e, e, release)
	awaitParent(child, &deps.pending, &deps.g, g, release)
	return Task[T]{node: child}
}

type depContext7[A, B, C, D, E, G, H any] struct {
	pending atomic.Int32
	a       Task[A]
	b       Task[B]
	c       Task[C]
	d       Task[D]
	e       Task[E]
	g       Task[G]
	h       Task[H]
}

// NewTask7 creates a composite task with seven parents.
func NewTask7[T, A, B, C, D, E, G, H any](fn func(Task[A], Task[B], Task[C], Task[D], Task[E], Task[G], Task[H]) T, s Scheduler, a Task[A], b Task[B], c Task[C], d Task[D], e Task[E], g Task[G], h Task[H]) Task[T] {
	s = resolveScheduler(s)
	a.mustBeValid()
	b.mustBeValid()
	c.mustBeValid()
	d.mustBeValid()
	e.mustBeValid()
	g.mustBeValid()
	h.mustBeValid()

	if fn == nil {
		panic("tpl: nil producer")
	}
	child := newComposite[T](s)
	deps := &depContext7[A, B, C, D, E, G, H]{}
	deps.pending.Store(7)
	child.fn = func() T { return fn(deps.a, deps.b, deps.c, deps.d, deps.e, deps.g, deps.h) }
	release := func(T) {
		deps.a = Task[A]{}
		deps.b = Task[B]{}
		deps.c = Task[C]{}
		deps.d = Task[D]{}
		deps.e = Task[E]{}
		deps.g = Task[G]{}
		deps.h = Task[H]{}
	}

	awaitParent(child, &deps.pending, &deps.a, a, release)
	awaitParent(child, &deps.pending, &deps.b, b, release)
	awaitParent(child, &deps.pending, &deps.c, c, release)
	awaitParent(child, &deps.pending, &deps.d, d, release)
	awaitParent(child, &deps.pending, &deps.e, e, release)
	awaitParent(child, &deps.pending, &deps.g, g, release)
	awaitParent(child, &deps.pending, &deps.h, h, release)
	return Task[T]{node: child}
}

type depContext8[A, B, C, D, E, G, H, I any] struct {
	pending atomic.Int32
	a       Task[A]
	b       Task[B]
	c       Task[C]
	d       Task[D]
	e       Task[E]
	g       Task[G]
	h       Task[H]
	i       Task[I]
}

// NewTask8 creates a composite task with eight parents.
func NewTask8[T, A, B, C, D, E, G, H, I any](fn func(Task[A], Task[B], Task[C], Task[D], Task[E], Task[G], Task[H], Task[I]) T, s Scheduler, a Task[A], b Task[B], c Task[C], d Task[D], e Task[E], g Task[G], h Task[H], i Task[I]) Task[T] {
	s = resolveScheduler(s)
	a.mustBeValid()
	b.mustBeValid()
	c.mustBeValid()
	d.mustBeValid()
	e.mustBeValid()
	g.mustBeValid()
	h.mustBeValid()
	i.mustBeValid()

	if fn == nil {
		panic("tpl: nil producer")
	}
	child := newComposite[T](s)
	deps := &depContext8[A, B, C, D, E, G, H, I]{}
	deps.pending.Store(8)
	child.fn = func() T { return fn(deps.a, deps.b, deps.c, deps.d, deps.e, deps.g, deps.h, deps.i) }
	release := func(T) {
		deps.a = Task[A]{}
		deps.b = Task[B]{}
		deps.c = Task[C]{}
		deps.d = Task[D]{}
		deps.e = Task[E]{}
		deps.g = Task[G]{}
		deps.h = Task[H]{}
		deps.i = Task[I]{}
	}

	awaitParent(child, &deps.pending, &deps.a, a, release)
	awaitParent(child, &deps.pending, &deps.b, b, release)
	awaitParent(child, &deps.pending, &deps.c, c, release)
	awaitParent(child, &deps.pending, &deps.d, d, release)
	awaitParent(child, &deps.pending, &deps.e, e, release)
	awaitParent(child, &deps.pending, &deps.g, g, release)
	awaitParent(child, &deps.pending, &deps.h, h, release)
	awaitParent(child, &deps.pending, &deps.i, i, release)
	return Task[T]{node: child}
}
