package uthread

import "github.com/regevino/go-uthreads/internal/constants"

// Re-export compile-time constants visible to callers.
const (
	MaxThreadNum = constants.MaxThreadNum
	StackSize    = constants.StackSize

	// MainThreadID is the reserved id of the main thread.
	MainThreadID = constants.MainThreadID
)
