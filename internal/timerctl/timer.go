//go:build unix

// Package timerctl wraps the POSIX virtual-timer primitives behind the
// scheduler's preemption tick: a timer that delivers a tick at quantum
// expiry. ITIMER_VIRTUAL counts only the process's own CPU time, so a
// thread that never runs never burns another thread's quantum.
//
// This file only builds on unix-family platforms: SIGVTALRM and
// ITIMER_VIRTUAL have no equivalent on Windows, so a build for an
// unsupported GOOS fails at compile time with missing symbols rather
// than silently falling back to a timer that can't honor quantum
// accounting.
package timerctl

import (
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Controller owns the process's ITIMER_VIRTUAL and the goroutine that
// turns its SIGVTALRM deliveries into calls to a tick function.
type Controller struct {
	tick func()

	sigCh chan os.Signal
	done  chan struct{}

	stopOnce sync.Once
}

// New installs the SIGVTALRM handler and starts the clock goroutine
// that invokes tick on every delivery. tick is responsible for its own
// synchronization with the scheduler; the clock goroutine never holds
// any lock itself.
func New(tick func()) (*Controller, error) {
	c := &Controller{
		tick:  tick,
		sigCh: make(chan os.Signal, 1),
		done:  make(chan struct{}),
	}

	signal.Notify(c.sigCh, syscall.SIGVTALRM)
	go c.run()

	return c, nil
}

// run owns the OS thread it starts on for its whole lifetime: a
// signal-delivery goroutine that the Go scheduler is free to migrate
// between OS threads would be the one place jitter in SIGVTALRM
// delivery could creep in from unrelated goroutine churn.
func (c *Controller) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case <-c.sigCh:
			c.tick()
		case <-c.done:
			return
		}
	}
}

// Arm (re)programs the timer to fire once, after d, with no further
// repeats; the scheduler rearms it explicitly on every tick for the
// newly-running thread's priority.
func (c *Controller) Arm(d time.Duration) {
	it := unix.Itimerval{
		Value: unix.NsecToTimeval(d.Nanoseconds()),
	}
	// Best-effort: Setitimer only fails on invalid arguments, and d
	// always comes from the validated quantum table built in Init.
	_ = unix.Setitimer(unix.ITIMER_VIRTUAL, &it, nil)
}

// Disarm cancels any pending timer delivery without stopping the clock
// goroutine.
func (c *Controller) Disarm() {
	var it unix.Itimerval
	_ = unix.Setitimer(unix.ITIMER_VIRTUAL, &it, nil)
}

// Stop disarms the timer, stops delivering SIGVTALRM to this
// controller, and shuts down the clock goroutine. It is safe to call
// more than once.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		c.Disarm()
		signal.Stop(c.sigCh)
		close(c.done)
	})
}
