package tpl

import "time"

// =============================================================================
// PanicHandler: Interface for handling callable panics
// =============================================================================

// PanicHandler is called when a callable panics while running on a
// scheduler. Implementations should be thread-safe as they may be called
// concurrently from several workers.
//
// Producers are expected not to panic; a panic reaching a scheduler is a
// programming error. The handler decides whether the error is fatal: a
// handler that returns normally swallows the panic and lets the worker
// continue, while a handler that panics again propagates it.
type PanicHandler interface {
	// HandlePanic is called when a callable panics.
	//
	// Parameters:
	// - schedulerID: the ID of the scheduler where the panic occurred
	// - workerID: the worker index (-1 for loop schedulers)
	// - panicInfo: the recovered panic value
	// - stackTrace: the stack at the time of panic
	HandlePanic(schedulerID string, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler logs the panic and re-panics, propagating the failure
// to the worker goroutine. This is the default: a panicking producer is a
// contract violation and tearing the process down is the documented choice.
type DefaultPanicHandler struct {
	Logger Logger
}

// HandlePanic logs panic information and re-panics with the original value.
func (h *DefaultPanicHandler) HandlePanic(schedulerID string, workerID int, panicInfo any, stackTrace []byte) {
	logger := h.Logger
	if logger == nil {
		logger = NewStdLogger()
	}
	logger.LogEvent(LogEvent{
		Level:     LogError,
		Message:   "callable panicked",
		Scheduler: schedulerID,
		Worker:    workerID,
		Panic:     panicInfo,
		Stack:     stackTrace,
	})
	panic(panicInfo)
}

// RecoveringPanicHandler logs the panic and lets the worker continue with
// the next callable.
type RecoveringPanicHandler struct {
	Logger Logger
}

// HandlePanic logs panic information and returns, swallowing the panic.
func (h *RecoveringPanicHandler) HandlePanic(schedulerID string, workerID int, panicInfo any, stackTrace []byte) {
	logger := h.Logger
	if logger == nil {
		logger = NewStdLogger()
	}
	logger.LogEvent(LogEvent{
		Level:     LogError,
		Message:   "callable panicked, worker continues",
		Scheduler: schedulerID,
		Worker:    workerID,
		Panic:     panicInfo,
		Stack:     stackTrace,
	})
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting scheduler execution metrics.
// Implementations can send metrics to monitoring systems (Prometheus,
// StatsD, etc.).
//
// Methods should be non-blocking and fast to avoid impacting execution
// performance.
type Metrics interface {
	// RecordTaskScheduled records that a callable was accepted by a scheduler.
	RecordTaskScheduled(schedulerID string)

	// RecordTaskDuration records how long a callable took to execute.
	RecordTaskDuration(schedulerID string, duration time.Duration)

	// RecordTaskPanic records that a callable panicked during execution.
	RecordTaskPanic(schedulerID string, panicInfo any)

	// RecordQueueDepth records the current queue depth.
	RecordQueueDepth(schedulerID string, depth int)

	// RecordTaskRejected records that a callable was rejected
	// (e.g. submitted after shutdown).
	RecordTaskRejected(schedulerID string, reason string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

// RecordTaskScheduled is a no-op.
func (m *NilMetrics) RecordTaskScheduled(schedulerID string) {}

// RecordTaskDuration is a no-op.
func (m *NilMetrics) RecordTaskDuration(schedulerID string, duration time.Duration) {}

// RecordTaskPanic is a no-op.
func (m *NilMetrics) RecordTaskPanic(schedulerID string, panicInfo any) {}

// RecordQueueDepth is a no-op.
func (m *NilMetrics) RecordQueueDepth(schedulerID string, depth int) {}

// RecordTaskRejected is a no-op.
func (m *NilMetrics) RecordTaskRejected(schedulerID string, reason string) {}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected callables
// =============================================================================

// RejectedTaskHandler is called when a scheduler refuses a callable. This
// happens when Schedule is called after Shutdown.
//
// Implementations should be thread-safe as they may be called concurrently.
type RejectedTaskHandler interface {
	// HandleRejectedTask is called when a callable is rejected.
	HandleRejectedTask(schedulerID string, reason string)
}

// DefaultRejectedTaskHandler logs rejected callables.
type DefaultRejectedTaskHandler struct {
	Logger Logger
}

// HandleRejectedTask logs the rejection.
func (h *DefaultRejectedTaskHandler) HandleRejectedTask(schedulerID string, reason string) {
	logger := h.Logger
	if logger == nil {
		logger = NewStdLogger()
	}
	logger.LogEvent(LogEvent{
		Level:     LogWarn,
		Message:   "callable rejected",
		Scheduler: schedulerID,
		Worker:    -1,
		Reason:    reason,
	})
}

// =============================================================================
// SchedulerConfig: Configuration for the bundled schedulers
// =============================================================================

// SchedulerConfig holds optional collaborators for PoolScheduler and
// LoopScheduler. All fields are optional; missing ones fall back to
// defaults.
type SchedulerConfig struct {
	// Logger receives scheduler lifecycle events. Defaults to NopLogger.
	Logger Logger

	// Metrics records execution metrics. Defaults to NilMetrics.
	Metrics Metrics

	// PanicHandler is called when a callable panics. Defaults to
	// DefaultPanicHandler (log then propagate).
	PanicHandler PanicHandler

	// RejectedTaskHandler is called for callables submitted after shutdown.
	// Defaults to DefaultRejectedTaskHandler.
	RejectedTaskHandler RejectedTaskHandler
}

// DefaultSchedulerConfig returns a config with default collaborators.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Logger:              NopLogger{},
		Metrics:             &NilMetrics{},
		PanicHandler:        &DefaultPanicHandler{},
		RejectedTaskHandler: &DefaultRejectedTaskHandler{},
	}
}

func (c *SchedulerConfig) withDefaults() SchedulerConfig {
	out := SchedulerConfig{}
	if c != nil {
		out = *c
	}
	if out.Logger == nil {
		out.Logger = NopLogger{}
	}
	if out.Metrics == nil {
		out.Metrics = &NilMetrics{}
	}
	if out.PanicHandler == nil {
		out.PanicHandler = &DefaultPanicHandler{Logger: out.Logger}
	}
	if out.RejectedTaskHandler == nil {
		out.RejectedTaskHandler = &DefaultRejectedTaskHandler{Logger: out.Logger}
	}
	return out
}
