//go:build !integration

package unit

import (
	"testing"

	uthread "github.com/regevino/go-uthreads"
)

// These tests run fast and deterministically: they never wait on the
// real virtual timer to fire.

func TestInitRejectsEmptyConfiguration(t *testing.T) {
	if err := uthread.Init(nil); err == nil {
		t.Fatal("init([]) should fail")
	}
}

func TestInitRejectsNegativeQuantum(t *testing.T) {
	if err := uthread.Init([]int{100, -1}); err == nil {
		t.Fatal("init([100, -1]) should fail")
	}
}

func TestSpawnUntilFull(t *testing.T) {
	if err := uthread.Init([]int{1000}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	seen := map[int]bool{0: true} // main
	for i := 0; i < uthread.MaxThreadNum-1; i++ {
		id, err := uthread.Spawn(func() {}, 0)
		if err != nil {
			t.Fatalf("spawn #%d: %v", i, err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}

	if _, err := uthread.Spawn(func() {}, 0); err == nil {
		t.Fatal("expected the thread table to be full")
	}
}

func TestSpawnRejectsUnknownPriority(t *testing.T) {
	if err := uthread.Init([]int{1000}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := uthread.Spawn(func() {}, 1); err == nil {
		t.Fatal("expected error for an unconfigured priority")
	}
}

func TestResumeOnReadyThreadIsNoOp(t *testing.T) {
	if err := uthread.Init([]int{1000}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	id, err := uthread.Spawn(func() {}, 0)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := uthread.Resume(id); err != nil {
		t.Errorf("Resume on a READY thread should succeed as a no-op: %v", err)
	}
}

func TestChangePriorityTwiceIsIdempotent(t *testing.T) {
	if err := uthread.Init([]int{1000, 500}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	id, err := uthread.Spawn(func() {}, 0)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := uthread.ChangePriority(id, 1); err != nil {
		t.Fatalf("first ChangePriority: %v", err)
	}
	if err := uthread.ChangePriority(id, 1); err != nil {
		t.Fatalf("second ChangePriority (same value): %v", err)
	}
}

func TestThreadQuantumsUnknownThread(t *testing.T) {
	if err := uthread.Init([]int{1000}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := uthread.ThreadQuantums(999); err == nil {
		t.Fatal("expected error querying an unknown thread")
	}
}
