package tpl

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

func waitFinalized(t *testing.T, flag *atomic.Bool, what string) {
	t.Helper()
	for i := 0; i < 20; i++ {
		if flag.Load() {
			return
		}
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("%s was not garbage collected", what)
}

// TestTaskNode_GC_AfterCompletion tests node cleanup after the graph is done
// Given: A completed leaf task whose future is ready and listeners drained
// When: The last handle is dropped
// Then: The node is garbage collected
func TestTaskNode_GC_AfterCompletion(t *testing.T) {
	// Arrange
	pool := NewPoolScheduler(1)
	defer pool.Shutdown()

	var finalized atomic.Bool

	task := NewTaskAndStart(func() int { return 1 }, pool)
	task.Future().Wait()

	runtime.SetFinalizer(task.node, func(*taskNode[int]) {
		finalized.Store(true)
	})

	// Act - drop the only handle
	task = Task[int]{}
	_ = task

	// Assert
	waitFinalized(t, &finalized, "completed task node")
}

// TestTaskNode_GC_CancelledBeforeStart tests dropping an unstarted leaf
// Given: A leaf task that is never started
// When: Every handle is dropped
// Then: The node and its producer are garbage collected
func TestTaskNode_GC_CancelledBeforeStart(t *testing.T) {
	// Arrange
	pool := NewPoolScheduler(1)
	defer pool.Shutdown()

	var finalized atomic.Bool

	task := NewTask(func() int { return 1 }, pool)
	runtime.SetFinalizer(task.node, func(*taskNode[int]) {
		finalized.Store(true)
	})

	// Act
	task = Task[int]{}
	_ = task

	// Assert - a cancelled-before-start leaf is legal and leaks nothing
	waitFinalized(t, &finalized, "unstarted task node")
}

// TestTaskNode_GC_ParentReleasedAfterChildReady tests the release listener
// Given: A completed parent-child chain where only the child handle is
// kept alive
// When: The parent handle is dropped
// Then: The parent node is garbage collected even though the child lives,
// because the dependency context dropped its slots once the child was
// ready
func TestTaskNode_GC_ParentReleasedAfterChildReady(t *testing.T) {
	// Arrange
	pool := NewPoolScheduler(1)
	defer pool.Shutdown()

	var parentFinalized atomic.Bool

	parent := NewTaskAndStart(func() int { return 1 }, pool)
	child := Then(parent, func(p Task[int]) int { return p.Future().Get() + 1 })
	child.Future().Wait()

	runtime.SetFinalizer(parent.node, func(*taskNode[int]) {
		parentFinalized.Store(true)
	})

	// Act - drop the parent handle, keep the child
	parent = Task[int]{}
	_ = parent

	// Assert
	waitFinalized(t, &parentFinalized, "parent node of a completed child")

	// The child is still fully usable.
	if got := child.Future().Get(); got != 2 {
		t.Fatalf("child value = %d, want 2", got)
	}
}

// TestTaskNode_GC_PendingChildKeptAlive tests the inverse direction: a
// composite with an incomplete parent must NOT be collected even when
// every user handle to it is dropped.
// Given: A composite whose parent has not completed
// When: The composite handle is dropped and GC runs
// Then: The node survives (the parent's pending listener holds it), and
// once the parent completes the composite still runs
func TestTaskNode_GC_PendingChildKeptAlive(t *testing.T) {
	// Arrange
	pool := NewPoolScheduler(1)
	defer pool.Shutdown()

	gate := make(chan struct{})
	parent := NewTaskAndStart(func() int {
		<-gate
		return 1
	}, pool)

	var childRan atomic.Bool
	childFuture := func() *Future[int] {
		child := Then(parent, func(p Task[int]) int {
			childRan.Store(true)
			return p.Future().Get() * 10
		})
		// Only the future escapes; the child handle is dropped here.
		return child.Future()
	}()

	// Act
	for i := 0; i < 5; i++ {
		runtime.GC()
		time.Sleep(5 * time.Millisecond)
	}
	close(gate)

	// Assert
	if got := childFuture.Get(); got != 10 {
		t.Fatalf("child value = %d, want 10", got)
	}
	if !childRan.Load() {
		t.Fatal("composite did not run after its handle was dropped")
	}
}
