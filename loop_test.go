package tpl

import (
	"sync/atomic"
	"testing"
	"time"
)

// TestLoopScheduler_RunExecutesInOrder verifies FIFO draining
// Given: A loop with several queued callables
// When: Run drives it on the test goroutine
// Then: Callables run in submission order and Run returns after Stop
func TestLoopScheduler_RunExecutesInOrder(t *testing.T) {
	// Arrange
	loop := NewLoopScheduler()

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		loop.Schedule(func() { order = append(order, i) })
	}
	loop.Schedule(func() { loop.Stop() })

	// Act - Run returns once Stop has been seen and the queue is empty
	loop.Run()

	// Assert
	if len(order) != 5 {
		t.Fatalf("executed = %d callables, want 5", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("order[%d] = %d, want %d", i, got, i)
		}
	}
}

// TestLoopScheduler_StopDrainsQueue verifies stop-then-drain semantics
// Given: A running loop and a burst of callables followed by Stop from
// another goroutine
// When: Run is driving the loop
// Then: Work queued before Stop still executes before Run returns
func TestLoopScheduler_StopDrainsQueue(t *testing.T) {
	loop := NewLoopScheduler()

	var executed atomic.Int32
	const n = 20

	go func() {
		for i := 0; i < n; i++ {
			loop.Schedule(func() { executed.Add(1) })
		}
		loop.Stop()
	}()

	done := make(chan struct{})
	go func() {
		loop.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	if got := executed.Load(); got != n {
		t.Fatalf("executed = %d, want %d", got, n)
	}
}

// TestLoopScheduler_OnLoop verifies driver identity
// Given: A loop driven by a background goroutine
// When: OnLoop is called from a callable and from the test goroutine
// Then: It reports true only on the driving goroutine
func TestLoopScheduler_OnLoop(t *testing.T) {
	loop := NewLoopScheduler()

	var onLoopInside atomic.Bool
	loop.Schedule(func() {
		onLoopInside.Store(loop.OnLoop())
		loop.Stop()
	})

	done := make(chan struct{})
	go func() {
		loop.Run()
		close(done)
	}()
	<-done

	if !onLoopInside.Load() {
		t.Fatal("OnLoop() inside a callable should be true")
	}
	if loop.OnLoop() {
		t.Fatal("OnLoop() outside the driver should be false")
	}
}

// TestLoopScheduler_SingleDriver verifies the one-driver contract
// Given: A loop already driven by a background goroutine
// When: A second goroutine calls Run
// Then: The second call panics
func TestLoopScheduler_SingleDriver(t *testing.T) {
	loop := NewLoopScheduler()

	driving := make(chan struct{})
	loop.Schedule(func() { close(driving) })

	done := make(chan struct{})
	go func() {
		loop.Run()
		close(done)
	}()
	<-driving

	func() {
		defer func() {
			if recover() == nil {
				t.Error("second Run should panic while the loop is driven")
			}
		}()
		loop.Run()
	}()

	loop.Stop()
	<-done
}

// TestLoopScheduler_Restart verifies the loop can be driven again
// Given: A loop that has been run and stopped once
// When: More work is scheduled and Run is called again
// Then: The new work executes
func TestLoopScheduler_Restart(t *testing.T) {
	loop := NewLoopScheduler()

	var first, second atomic.Bool

	loop.Schedule(func() { first.Store(true) })
	loop.Schedule(func() { loop.Stop() })
	loop.Run()

	loop.Schedule(func() { second.Store(true) })
	loop.Schedule(func() { loop.Stop() })
	loop.Run()

	if !first.Load() || !second.Load() {
		t.Fatalf("first = %v, second = %v, want both true", first.Load(), second.Load())
	}
}

// TestLoopScheduler_RecursiveReEnqueue verifies graph-driven shutdown
// Given: A pool-side composite whose producer builds the next generation
// of leaves and composites, mixing a pool and a loop scheduler, with the
// terminal generation stopping the loop
// When: The loop is driven until it stops
// Then: Run returns after the expected number of generations and every
// future produced along the way completes
func TestLoopScheduler_RecursiveReEnqueue(t *testing.T) {
	pool := NewPoolScheduler(4)
	defer pool.Shutdown()
	loop := NewLoopScheduler()

	const generations = 3
	remaining := int64(generations)

	var poolSide atomic.Int32
	var loopSide atomic.Int32

	// Futures created by every generation, checked for completion at the
	// end. The test goroutine (first generation) and the pool-side producer
	// (later ones) send them on futuresCh; the test goroutine collects them
	// into futures once the loop has stopped.
	var futures []*Future[Void]
	futuresCh := make(chan *Future[Void], generations*4)

	var step func(generation int64)
	step = func(generation int64) {
		if generation == 0 {
			loop.Stop()
			return
		}

		left := NewTask(func() Void {
			time.Sleep(5 * time.Millisecond)
			return Void{}
		}, pool)
		right := NewTask(func() Void {
			time.Sleep(5 * time.Millisecond)
			return Void{}
		}, pool)

		next := NewTask2(func(l, r Task[Void]) Void {
			poolSide.Add(1)
			step(atomic.AddInt64(&remaining, -1))
			return Void{}
		}, pool, left, right)

		observer := NewTask2(func(l, r Task[Void]) Void {
			loopSide.Add(1)
			return Void{}
		}, loop, left, right)

		futuresCh <- left.Future()
		futuresCh <- right.Future()
		futuresCh <- next.Future()
		futuresCh <- observer.Future()

		left.Start()
		right.Start()
	}

	step(atomic.AddInt64(&remaining, 0))
	loop.Run()

	close(futuresCh)
	for f := range futuresCh {
		futures = append(futures, f)
	}

	// Liveness: every future produced along the way completes.
	for _, f := range futures {
		f.Wait()
	}

	if got := poolSide.Load(); got != generations {
		t.Fatalf("pool-side composites = %d, want %d", got, generations)
	}
	if got := loopSide.Load(); got != generations {
		t.Fatalf("loop-side composites = %d, want %d", got, generations)
	}
}
