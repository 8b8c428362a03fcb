package uthread

import "github.com/regevino/go-uthreads/internal/sched"

// MetricsSnapshot is a point-in-time copy of the scheduler's ambient
// dispatch/tick/spawn/terminate/block/resume counters.
type MetricsSnapshot = sched.MetricsSnapshot

// Metrics returns a snapshot of the running scheduler's counters, or a
// library error if the scheduler has not been initialised.
func Metrics() (MetricsSnapshot, error) {
	s := sched.Get()
	if s == nil {
		return MetricsSnapshot{}, newError("metrics", ErrNotInitialized, "call Init first")
	}
	return s.MetricsSnapshot(), nil
}
