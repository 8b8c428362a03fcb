package sched

import "runtime"

// dispatchTo performs the dispatcher primitive: it increments the
// global quantum counter and the target's quantum count, then hands
// the token to target by waking its parked goroutine. s.mu must be
// held by the caller; dispatchTo releases it before returning, since
// what follows (the outgoing thread parking itself, or a thread
// running freely) must never happen while holding the scheduler lock.
//
// Counters are incremented here, before the handoff: both sides of the
// switch observe the incremented values, and nothing increments them
// again on the resume path.
func (s *Scheduler) dispatchTo(target *Thread) {
	s.totalQuantum++
	target.incQuantum()
	s.dispatchByPriority[target.Priority()]++
	s.runningID = target.id
	target.wake()
	s.mu.Unlock()
}

// Checkpoint parks the calling goroutine if it is no longer the
// scheduler's chosen running thread — the point at which an
// asynchronously preempted thread (or a thread that just self-blocked
// or was resumed-but-not-yet-redispatched) actually stops running. It
// loops re-checking after each wake to absorb the race between a
// buffered wake and a later re-preemption.
//
// Block calls this on behalf of a self-blocking caller after releasing
// the scheduler lock; no other entry point calls it. User code calls
// it directly (via the package-level Checkpoint wrapper) to let a
// pending preemption take effect inside a long computation.
func (s *Scheduler) Checkpoint(id int) {
	for {
		s.mu.Lock()
		t := s.threads[id]
		if t == nil {
			s.mu.Unlock()
			return
		}
		if t.terminate.Load() {
			s.mu.Unlock()
			// This goroutine's thread was terminated while queued or
			// blocked; it must stop existing, not return to its
			// caller, matching terminate's "does not return" contract.
			runtime.Goexit()
		}
		if s.runningID == id {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		if !t.park() {
			runtime.Goexit()
		}
	}
}
