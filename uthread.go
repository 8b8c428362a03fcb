package uthread

import (
	"fmt"
	"os"

	"github.com/regevino/go-uthreads/internal/logging"
	"github.com/regevino/go-uthreads/internal/sched"
)

// EntryPoint is a user-thread body.
type EntryPoint = sched.EntryPoint

// Init installs the timer handler, constructs the main thread (id 0),
// and arms the timer. quantaUsec is indexed by priority and must have
// at least one entry, each non-negative. Library errors are printed to
// stderr with the "thread library error:" prefix and returned as
// *Error; system errors are printed with the "system error:" prefix
// and terminate the process, since there is no sensible recovery when
// the preemption mechanism cannot be armed.
func Init(quantaUsec []int) error {
	for i, q := range quantaUsec {
		if q < 0 {
			return libFail("init", ErrInvalidQuanta, fmt.Sprintf("quantum[%d] is negative", i))
		}
	}
	if len(quantaUsec) < 1 {
		return libFail("init", ErrInvalidQuanta, "quantum list must have at least one entry")
	}

	_, err := sched.Init(quantaUsec)
	return translate("init", err)
}

// Spawn creates a new user thread at priority and appends it to the
// ready queue, returning its id.
func Spawn(entry EntryPoint, priority int) (int, error) {
	if priority < 0 {
		return -1, libFail("spawn", ErrNegativeArg, "negative priority")
	}

	s, err := current("spawn")
	if err != nil {
		return -1, err
	}

	id, err := s.Spawn(entry, priority)
	if err != nil {
		return -1, translate("spawn", err)
	}
	return id, nil
}

// Terminate ends the thread tid. It does not return to a
// self-terminating caller; terminating the main thread (id 0) exits
// the process with success status.
func Terminate(tid int) error {
	s, err := current("terminate")
	if err != nil {
		return err
	}
	return translate("terminate", s.Terminate(tid))
}

// Block suspends tid (which must not be the main thread) until a
// matching Resume.
func Block(tid int) error {
	s, err := current("block")
	if err != nil {
		return err
	}
	return translate("block", s.Block(tid))
}

// Resume moves a BLOCKED thread back to READY. It is a no-op on a
// thread that is not BLOCKED.
func Resume(tid int) error {
	s, err := current("resume")
	if err != nil {
		return err
	}
	return translate("resume", s.Resume(tid))
}

// ChangePriority updates tid's priority; it takes effect at tid's next
// dispatch, or immediately if tid is currently running.
func ChangePriority(tid, priority int) error {
	s, err := current("change_priority")
	if err != nil {
		return err
	}
	return translate("change_priority", s.ChangePriority(tid, priority))
}

// RunningID returns the id of the currently running thread.
func RunningID() (int, error) {
	s, err := current("running_id")
	if err != nil {
		return -1, err
	}
	return s.RunningID(), nil
}

// TotalQuantums returns the global quantum counter.
func TotalQuantums() (uint64, error) {
	s, err := current("total_quantums")
	if err != nil {
		return 0, err
	}
	return s.TotalQuantums(), nil
}

// ThreadQuantums returns tid's quantum count.
func ThreadQuantums(tid int) (uint64, error) {
	s, err := current("thread_quantums")
	if err != nil {
		return 0, err
	}
	n, err := s.ThreadQuantums(tid)
	return n, translate("thread_quantums", err)
}

// Checkpoint lets a pending preemption actually take effect: if tid is
// no longer the running thread, the call parks until tid is dispatched
// again. Apart from Block on the caller's own id, no other entry point
// parks its caller, so a preempted thread keeps running until it calls
// Checkpoint(tid) with its own id. tid must be the id of the thread
// making the call — the main thread always passes MainThreadID (0);
// a spawned thread passes the id Spawn returned for it. There is no
// way to infer "my own id" generically, since a thread that has
// already been preempted no longer matches RunningID().
func Checkpoint(tid int) error {
	s, err := current("checkpoint")
	if err != nil {
		return err
	}
	s.Checkpoint(tid)
	return nil
}

func current(op string) (*sched.Scheduler, error) {
	s := sched.Get()
	if s == nil {
		return nil, libFail(op, ErrNotInitialized, "call Init first")
	}
	return s, nil
}

// translate maps a sched package error into the public error types and
// emits the required stderr diagnostics; nil passes through untouched.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	switch e := err.(type) {
	case sched.LibError:
		return libFail(op, codeFor(e.Code), e.Error())
	case sched.SystemError:
		return sysFail(op, e.Error())
	default:
		return libFail(op, ErrLibraryMisuse, e.Error())
	}
}

// codeFor maps a sched.Code onto the public ErrorCode a caller can
// match with errors.Is, so e.g. errors.Is(err, ErrTableFull) works
// against a real Spawn-at-capacity error instead of everything
// collapsing into ErrLibraryMisuse.
func codeFor(c sched.Code) ErrorCode {
	switch c {
	case sched.CodeInvalidQuanta:
		return ErrInvalidQuanta
	case sched.CodeUnknownThread:
		return ErrUnknownThread
	case sched.CodeUnknownPriority:
		return ErrUnknownPriority
	case sched.CodeTableFull:
		return ErrTableFull
	case sched.CodeNegativeArg:
		return ErrNegativeArg
	case sched.CodeMainImmutable:
		return ErrMainImmutable
	default:
		return ErrLibraryMisuse
	}
}

func libFail(op string, code ErrorCode, msg string) error {
	e := newError(op, code, msg)
	fmt.Fprintf(os.Stderr, "thread library error: %s\n", e.Error())
	logging.Default().Warn("library error", "op", op, "msg", msg)
	return e
}

func sysFail(op, msg string) error {
	e := &SystemError{Op: op, Msg: msg}
	fmt.Fprintf(os.Stderr, "system error: %s\n", e.Error())
	logging.Default().Error("system error", "op", op, "msg", msg)
	os.Exit(1)
	return e // unreachable
}
