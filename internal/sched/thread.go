// Package sched implements the scheduler singleton: the thread table,
// ready queue, priority-to-quantum table, and the state-transition
// logic behind spawn/terminate/block/resume/change-priority.
package sched

import (
	"runtime"
	"sync/atomic"

	"github.com/regevino/go-uthreads/internal/constants"
)

// State is a thread's position in the per-thread state machine.
type State int

const (
	// Ready means the thread is eligible for dispatch. The currently
	// running thread is also Ready; there is no separate Running value.
	Ready State = iota
	Blocked
	Terminated
)

func (s State) String() string {
	switch s {
	case Ready:
		return "READY"
	case Blocked:
		return "BLOCKED"
	case Terminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// EntryPoint is a user-thread body.
type EntryPoint func()

// Thread is the per-thread record. Its saved-context and stack fields
// are realized as a parked goroutine rather than a raw register file.
// resumeCh is the rendezvous channel that stands in for
// save_context/restore_context.
type Thread struct {
	id       int
	priority int32 // atomic: changed by change_priority, read at dispatch time
	state    atomic.Int32
	quantum  atomic.Uint64

	// stack is a bookkeeping-only buffer honoring the data model's
	// "owns a stack buffer of fixed size" invariant; the real Go stack
	// backing this thread's goroutine is managed by the Go runtime.
	stack []byte

	resumeCh  chan struct{}
	terminate atomic.Bool
	entry     EntryPoint
}

// NewMain constructs the main thread record. It allocates no stack
// (the main thread runs on the process stack) and is pre-credited with
// one quantum.
func NewMain() *Thread {
	t := &Thread{
		id:       constants.MainThreadID,
		priority: constants.MainThreadPriority,
		resumeCh: make(chan struct{}, 1),
	}
	t.state.Store(int32(Ready))
	t.quantum.Store(1)
	return t
}

// NewUser constructs a user-thread record with a freshly allocated
// stack buffer and launches its backing goroutine. The goroutine
// parks immediately, awaiting its first dispatch; entry is not called
// until then.
func NewUser(id, priority int, entry EntryPoint, onExit func(id int)) *Thread {
	t := &Thread{
		id:       id,
		priority: int32(priority),
		stack:    make([]byte, constants.StackSize),
		resumeCh: make(chan struct{}, 1),
		entry:    entry,
	}
	t.state.Store(int32(Ready))

	go t.run(onExit)

	return t
}

// run is the backing goroutine body for a user thread. It awaits its
// first dispatch, runs the entry function, and treats a natural return
// from entry as a self-terminate.
func (t *Thread) run(onExit func(id int)) {
	if !t.park() {
		// Terminated before ever being dispatched.
		runtime.Goexit()
	}
	t.entry()
	onExit(t.id)
	runtime.Goexit()
}

// park blocks the calling goroutine until this thread is woken by a
// dispatch, whether that dispatch hands it the token to run or merely
// wakes it to discover it has been terminated. It reports false in
// the latter case. This is the Go-native realization of
// save_context/restore_context for both the thread's first dispatch
// and every subsequent suspension (self-block or preemption
// checkpoint).
func (t *Thread) park() bool {
	<-t.resumeCh
	return !t.terminate.Load()
}

// wake signals this thread's backing goroutine to proceed; it is the
// Go-native realization of restore_context. It must never block: the
// channel is buffered to size 1 and a thread is only ever woken once
// between parks.
func (t *Thread) wake() {
	select {
	case t.resumeCh <- struct{}{}:
	default:
	}
}

// markTerminatedAndWake flags the thread as terminated and, if its
// goroutine is currently parked (queued, blocked, or awaiting its
// first dispatch), wakes it so it can exit cleanly via runtime.Goexit
// instead of leaking a parked goroutine forever.
func (t *Thread) markTerminatedAndWake() {
	t.terminate.Store(true)
	t.state.Store(int32(Terminated))
	t.wake()
}

// ID returns the thread's id.
func (t *Thread) ID() int { return t.id }

// Priority returns the thread's current priority.
func (t *Thread) Priority() int {
	return int(atomic.LoadInt32(&t.priority))
}

// SetPriority updates the thread's priority; it takes effect at the
// thread's next dispatch.
func (t *Thread) SetPriority(p int) {
	atomic.StoreInt32(&t.priority, int32(p))
}

// State returns the thread's current state.
func (t *Thread) State() State {
	return State(t.state.Load())
}

// SetState transitions the thread's state. TERMINATED is absorbing;
// callers must not invoke SetState after Terminated has been observed.
func (t *Thread) SetState(s State) {
	t.state.Store(int32(s))
}

// QuantumCount returns the number of quanta this thread has been
// dispatched for.
func (t *Thread) QuantumCount() uint64 {
	return t.quantum.Load()
}

// incQuantum credits this thread with one more dispatched quantum.
func (t *Thread) incQuantum() {
	t.quantum.Add(1)
}

// IsMain reports whether this is the reserved main thread.
func (t *Thread) IsMain() bool {
	return t.id == constants.MainThreadID
}
