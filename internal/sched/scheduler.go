package sched

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/regevino/go-uthreads/internal/constants"
	"github.com/regevino/go-uthreads/internal/logging"
	"github.com/regevino/go-uthreads/internal/timerctl"
)

// Code categorizes a LibError so callers can match on it without
// parsing the message text.
type Code string

const (
	CodeInvalidQuanta   Code = "invalid_quanta"
	CodeUnknownThread   Code = "unknown_thread"
	CodeUnknownPriority Code = "unknown_priority"
	CodeTableFull       Code = "table_full"
	CodeNegativeArg     Code = "negative_arg"
	CodeMainImmutable   Code = "main_immutable"
)

// LibError is returned by scheduler operations on caller misuse; it is
// never fatal.
type LibError struct {
	Code Code
	Msg  string
}

func (e LibError) Error() string { return e.Msg }

func libErr(code Code, msg string) LibError {
	return LibError{Code: code, Msg: msg}
}

// SystemError signals a failure of the underlying timer/signal
// primitives; it is always fatal to the process.
type SystemError string

func (e SystemError) Error() string { return string(e) }

// Scheduler is the process-wide singleton: thread table, ready queue,
// running thread, priority table, and the installed timer. Every
// mutating method assumes s.mu is the masked-preemption-signal
// critical section: a scoped acquisition guaranteed to release on
// every path.
type Scheduler struct {
	mu sync.Mutex

	threads   [constants.MaxThreadNum]*Thread
	liveCount int

	ready []int // FIFO of ids; running thread is never present here

	runningID int

	quantumFor map[int]time.Duration

	totalQuantum uint64

	timer  *timerctl.Controller
	logger *logging.Logger

	// Ambient instrumentation, not part of the scheduling algorithm
	// itself; guarded by s.mu like everything else here.
	ticks        uint64
	spawns       uint64
	terminates   uint64
	blocks       uint64
	resumes      uint64
	blockedCount int
	dispatchByPriority map[int]uint64
}

// MetricsSnapshot is a point-in-time copy of the scheduler's ambient
// counters.
type MetricsSnapshot struct {
	Dispatches         uint64
	Ticks              uint64
	Spawns             uint64
	Terminates         uint64
	Blocks             uint64
	Resumes            uint64
	DispatchByPriority map[int]uint64
	BlockedCount       int
}

// MetricsSnapshot returns a copy of the scheduler's current counters.
func (s *Scheduler) MetricsSnapshot() MetricsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	byPriority := make(map[int]uint64, len(s.dispatchByPriority))
	for k, v := range s.dispatchByPriority {
		byPriority[k] = v
	}

	return MetricsSnapshot{
		Dispatches:         s.totalQuantum - 1, // minus main's pre-credited quantum
		Ticks:              s.ticks,
		Spawns:             s.spawns,
		Terminates:         s.terminates,
		Blocks:             s.blocks,
		Resumes:            s.resumes,
		DispatchByPriority: byPriority,
		BlockedCount:       s.blockedCount,
	}
}

var (
	instance   *Scheduler
	instanceMu sync.Mutex
)

// Get returns the current scheduler singleton, or nil if Init has not
// been called (or the scheduler has been torn down by terminating the
// main thread).
func Get() *Scheduler {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	return instance
}

// Init constructs the scheduler singleton: builds the priority→quantum
// table, installs the virtual-timer handler, constructs the main
// thread as the running thread, and arms the timer. Returns a LibError
// if quanta is empty or contains a negative duration.
func Init(quantaUsec []int) (*Scheduler, error) {
	if len(quantaUsec) < 1 {
		return nil, libErr(CodeInvalidQuanta, "init: quantum list must have at least one entry")
	}
	for i, q := range quantaUsec {
		if q < 0 {
			return nil, libErr(CodeInvalidQuanta, fmt.Sprintf("init: quantum[%d] is negative", i))
		}
	}

	instanceMu.Lock()
	defer instanceMu.Unlock()

	table := make(map[int]time.Duration, len(quantaUsec))
	for priority, usec := range quantaUsec {
		table[priority] = time.Duration(usec) * time.Microsecond
	}

	s := &Scheduler{
		quantumFor:         table,
		logger:             logging.Default(),
		dispatchByPriority: make(map[int]uint64),
	}

	main := NewMain()
	s.threads[main.id] = main
	s.liveCount = 1
	s.runningID = main.id
	s.totalQuantum = 1

	timer, err := timerctl.New(s.tick)
	if err != nil {
		return nil, SystemError(err.Error())
	}
	s.timer = timer
	s.timer.Arm(s.quantumFor[main.Priority()])

	instance = s
	return s, nil
}

// Spawn creates a new user thread at priority and appends it to the
// ready queue.
func (s *Scheduler) Spawn(entry EntryPoint, priority int) (int, error) {
	if priority < 0 {
		return -1, libErr(CodeNegativeArg, "spawn: negative priority")
	}

	s.mu.Lock()

	if _, ok := s.quantumFor[priority]; !ok {
		s.mu.Unlock()
		return -1, libErr(CodeUnknownPriority, fmt.Sprintf("spawn: unknown priority %d", priority))
	}
	if s.liveCount >= constants.MaxThreadNum {
		s.mu.Unlock()
		return -1, libErr(CodeTableFull, "spawn: thread table full")
	}

	id := s.lowestFreeSlot()
	s.removeFromReady(id) // defensive sweep against a stale queue entry

	t := NewUser(id, priority, entry, s.onThreadExit)
	s.threads[id] = t
	s.liveCount++
	s.ready = append(s.ready, id)
	s.spawns++
	s.logger.Debug("spawned thread", "id", id, "priority", priority)

	s.mu.Unlock()
	return id, nil
}

// Terminate ends the thread tid. It never returns to a
// self-terminating caller (including main, which instead exits the
// process).
//
// selfTerminating below is only an approximation of "the calling
// goroutine is the one that asked to terminate itself": a thread that
// was asynchronously preempted but hasn't yet reached a checkpoint is
// still the goroutine making this call, even though s.runningID now
// names whichever thread was dispatched in its place. In that narrow
// window Terminate(tid) for the preempted thread's own id is
// misclassified as terminating someone else rather than itself.
func (s *Scheduler) Terminate(tid int) error {
	s.mu.Lock()

	t := s.threads[tid]
	if t == nil {
		s.mu.Unlock()
		return libErr(CodeUnknownThread, fmt.Sprintf("terminate: unknown thread %d", tid))
	}

	selfTerminating := tid == s.runningID

	if t.State() == Blocked && s.blockedCount > 0 {
		s.blockedCount--
	}
	t.SetState(Terminated)
	s.liveCount--
	s.removeFromReady(tid)
	s.terminates++

	if tid == constants.MainThreadID {
		s.logger.Info("main thread terminated, shutting down")
		s.teardown()
		s.mu.Unlock()
		os.Exit(0)
		return nil // unreachable
	}

	s.logger.Debug("terminated thread", "id", tid, "self", selfTerminating)

	if selfTerminating {
		next := s.pickNextOrMain()
		// Clear the slot now, not lazily: Go's runtime reclaims this
		// goroutine's stack on its own once it exits, so there is
		// nothing left to protect by deferring the reap. Leaving the
		// slot occupied until a later dispatch walks past it would let
		// a Spawn racing in right now see a non-nil TERMINATED entry
		// and skip it in lowestFreeSlot, handing out a higher id than
		// the minimum missing one.
		s.threads[tid] = nil
		// Push the dying id anyway so a stale reference already queued
		// elsewhere resolves to nil and is skipped, the same as any
		// other cleared slot.
		s.ready = append(s.ready, tid)
		t.terminate.Store(true)
		s.dispatchTo(next) // unlocks s.mu
		// terminate never returns to a self-terminating caller; end
		// this goroutine here rather than unwinding back through
		// whatever called Terminate.
		runtime.Goexit()
		return nil // unreachable
	}

	// Non-running, non-main victim: clear the slot directly. If its
	// goroutine is parked awaiting its first dispatch or resumption,
	// wake it so it observes the terminate flag and exits cleanly.
	t.markTerminatedAndWake()
	s.threads[tid] = nil
	s.mu.Unlock()
	return nil
}

// Block suspends tid (which must not be the main thread) until a
// matching Resume.
func (s *Scheduler) Block(tid int) error {
	if tid == constants.MainThreadID {
		return libErr(CodeMainImmutable, "block: main thread cannot be blocked")
	}

	s.mu.Lock()

	t := s.threads[tid]
	if t == nil {
		s.mu.Unlock()
		return libErr(CodeUnknownThread, fmt.Sprintf("block: unknown thread %d", tid))
	}

	selfBlocking := tid == s.runningID
	if t.State() != Blocked {
		s.blockedCount++
	}
	t.SetState(Blocked)
	s.blocks++
	s.logger.Debug("blocked thread", "id", tid, "self", selfBlocking)
	if !selfBlocking {
		s.removeFromReady(tid)
		s.mu.Unlock()
		return nil
	}

	next := s.pickNextOrMain()
	s.dispatchTo(next) // unlocks s.mu
	s.Checkpoint(tid)  // parks here until resumed and redispatched
	return nil
}

// Resume moves a BLOCKED thread back to READY. It is a no-op on a
// thread that is not BLOCKED.
func (s *Scheduler) Resume(tid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.threads[tid]
	if t == nil {
		return libErr(CodeUnknownThread, fmt.Sprintf("resume: unknown thread %d", tid))
	}

	s.resumes++
	if t.State() == Blocked {
		t.SetState(Ready)
		s.ready = append(s.ready, tid)
		if s.blockedCount > 0 {
			s.blockedCount--
		}
	}
	// READY and TERMINATED: no-op success.
	return nil
}

// ChangePriority updates tid's priority; it takes effect at tid's next
// dispatch, or immediately if tid is currently running.
func (s *Scheduler) ChangePriority(tid, priority int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.threads[tid]
	if t == nil {
		return libErr(CodeUnknownThread, fmt.Sprintf("change_priority: unknown thread %d", tid))
	}
	if _, ok := s.quantumFor[priority]; !ok {
		return libErr(CodeUnknownPriority, fmt.Sprintf("change_priority: unknown priority %d", priority))
	}

	t.SetPriority(priority)
	if tid == s.runningID {
		// Reprogram the live timer immediately so a priority change on
		// the currently running thread takes effect without waiting
		// for its next dispatch.
		s.timer.Arm(s.quantumFor[priority])
	}
	return nil
}

// RunningID returns the id of the currently running thread.
func (s *Scheduler) RunningID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningID
}

// TotalQuantums returns the global quantum counter.
func (s *Scheduler) TotalQuantums() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalQuantum
}

// ThreadQuantums returns tid's quantum count, or a LibError if tid is
// unknown.
func (s *Scheduler) ThreadQuantums(tid int) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.threads[tid]
	if t == nil {
		return 0, libErr(CodeUnknownThread, fmt.Sprintf("thread_quantums: unknown thread %d", tid))
	}
	return t.QuantumCount(), nil
}

// onThreadExit is invoked by a user thread's backing goroutine when
// its entry function returns normally; it is equivalent to that
// thread calling Terminate on itself.
func (s *Scheduler) onThreadExit(id int) {
	_ = s.Terminate(id)
}

// lowestFreeSlot returns the lowest empty index in the thread table.
// Caller must hold s.mu.
func (s *Scheduler) lowestFreeSlot() int {
	for i := 0; i < constants.MaxThreadNum; i++ {
		if s.threads[i] == nil {
			return i
		}
	}
	// Unreachable: callers check liveCount < MaxThreadNum first.
	return -1
}

// removeFromReady deletes every occurrence of id from the ready
// queue. Caller must hold s.mu.
func (s *Scheduler) removeFromReady(id int) {
	if len(s.ready) == 0 {
		return
	}
	out := s.ready[:0]
	for _, q := range s.ready {
		if q != id {
			out = append(out, q)
		}
	}
	s.ready = out
}

// pickNextOrMain pops the next runnable thread from the ready queue,
// skipping and dropping TERMINATED entries and skipping BLOCKED ones,
// falling back to the main thread if the queue empties first. Caller
// must hold s.mu.
func (s *Scheduler) pickNextOrMain() *Thread {
	for len(s.ready) > 0 {
		id := s.ready[0]
		s.ready = s.ready[1:]
		t := s.threads[id]
		if t == nil {
			continue
		}
		switch t.State() {
		case Terminated:
			s.threads[id] = nil
			continue
		case Blocked:
			continue
		default:
			return t
		}
	}
	return s.threads[constants.MainThreadID]
}

// teardown clears all scheduler state and disarms the timer, as part
// of terminating the main thread.
func (s *Scheduler) teardown() {
	s.timer.Disarm()
	s.timer.Stop()
	for i := range s.threads {
		s.threads[i] = nil
	}
	s.ready = nil
	s.liveCount = 0
	instance = nil
}
