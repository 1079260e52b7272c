package tpl

import "sync"

// Scheduler is the submission endpoint for producer callables.
//
// Schedule either runs fn or enqueues it for later execution; an accepted
// callable runs exactly once unless the scheduler is torn down. Schedule
// must be safe to call from arbitrary goroutines.
//
// A scheduler must strictly outlive every task bound to it. The library
// does not police this beyond the documented contract.
type Scheduler interface {
	Schedule(fn func())
}

// =============================================================================
// Default Scheduler (process-wide, optional)
// =============================================================================

var (
	defaultSchedulerMu sync.Mutex
	defaultScheduler   Scheduler
)

// SetDefaultScheduler installs the process-wide default scheduler used by
// constructors that are handed a nil Scheduler. Pass nil to clear it.
func SetDefaultScheduler(s Scheduler) {
	defaultSchedulerMu.Lock()
	defer defaultSchedulerMu.Unlock()
	defaultScheduler = s
}

// GetDefaultScheduler returns the process-wide default scheduler, or nil if
// none has been set.
func GetDefaultScheduler() Scheduler {
	defaultSchedulerMu.Lock()
	defer defaultSchedulerMu.Unlock()
	return defaultScheduler
}

// resolveScheduler maps a nil scheduler to the process-wide default.
// Omitting the scheduler without having set a default is a contract
// violation.
func resolveScheduler(s Scheduler) Scheduler {
	if s != nil {
		return s
	}
	if d := GetDefaultScheduler(); d != nil {
		return d
	}
	panic("tpl: nil scheduler and no default scheduler set, did you forget to call SetDefaultScheduler?")
}
