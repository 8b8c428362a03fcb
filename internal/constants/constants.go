package constants

// Scheduler sizing constants
const (
	// MaxThreadNum is the hard upper bound on live threads, including main.
	MaxThreadNum = 128

	// StackSize is the number of bytes recorded as owned by each
	// user-thread record's stack buffer.
	StackSize = 64 * 1024
)

// MainThreadID is the reserved id of the main thread.
const MainThreadID = 0

// MainThreadPriority is the priority the main thread is constructed with.
const MainThreadPriority = 0
