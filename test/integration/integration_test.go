//go:build integration

package integration

import (
	"os"
	"os/exec"
	"sync/atomic"
	"testing"
	"time"

	uthread "github.com/regevino/go-uthreads"
)

// These tests depend on the real ITIMER_VIRTUAL/SIGVTALRM delivery
// (see internal/timerctl), so they run slower and with real wall-clock
// waits; they are gated behind the integration build tag so the
// default test run stays fast and hermetic.

func TestBlockResumeEventuallyDispatchesThread(t *testing.T) {
	if err := uthread.Init([]int{5000}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var observedRunning int32
	var id int

	id, err := uthread.Spawn(func() {
		for {
			atomic.StoreInt32(&observedRunning, 1)
			uthread.Checkpoint(id)
		}
	}, 0)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	if err := uthread.Block(id); err != nil {
		t.Fatalf("Block: %v", err)
	}
	running, err := uthread.RunningID()
	if err != nil {
		t.Fatalf("RunningID: %v", err)
	}
	if running != 0 {
		t.Fatalf("RunningID = %d, want main (0) while B is blocked before ever running", running)
	}

	if err := uthread.Resume(id); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		uthread.Checkpoint(uthread.MainThreadID)
		if atomic.LoadInt32(&observedRunning) == 1 {
			break
		}
	}
	if atomic.LoadInt32(&observedRunning) != 1 {
		t.Fatal("thread B was never observed running within the deadline")
	}

	if err := uthread.Terminate(id); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
}

// TestMainTerminateExitsProcess verifies that terminating the main
// thread exits the process with success status. Since that exit would
// kill this test binary too, the actual call happens in a re-exec'd
// subprocess and this test only inspects its exit status.
func TestMainTerminateExitsProcess(t *testing.T) {
	if os.Getenv("UTHREAD_TERMINATE_MAIN_SUBPROCESS") == "1" {
		if err := uthread.Init([]int{10000}); err != nil {
			os.Exit(2)
		}
		_ = uthread.Terminate(0) // does not return
		os.Exit(3)               // unreachable if terminate(0) behaves
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestMainTerminateExitsProcess")
	cmd.Env = append(os.Environ(), "UTHREAD_TERMINATE_MAIN_SUBPROCESS=1")
	if err := cmd.Run(); err != nil {
		t.Fatalf("subprocess terminate(0) did not exit successfully: %v", err)
	}
}
