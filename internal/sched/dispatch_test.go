package sched

import "testing"

func TestDispatchToIncrementsCounters(t *testing.T) {
	s, err := Init([]int{longQuantum})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer s.teardown()

	// Entry blocks forever so the assertions below can't race against
	// the thread self-terminating and switching running back to main;
	// its backing goroutine is intentionally leaked for the life of
	// this test process.
	block := make(chan struct{})
	id, err := s.Spawn(func() { <-block }, 0)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	s.mu.Lock()
	target := s.threads[id]
	before := target.QuantumCount()
	beforeTotal := s.totalQuantum
	s.dispatchTo(target) // unlocks s.mu

	if target.QuantumCount() != before+1 {
		t.Errorf("target quantum count = %d, want %d", target.QuantumCount(), before+1)
	}
	if s.TotalQuantums() != beforeTotal+1 {
		t.Errorf("total quantum = %d, want %d", s.TotalQuantums(), beforeTotal+1)
	}
	if s.RunningID() != id {
		t.Errorf("RunningID = %d, want %d", s.RunningID(), id)
	}
}

func TestCheckpointReturnsImmediatelyWhenRunning(t *testing.T) {
	s, err := Init([]int{longQuantum})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer s.teardown()

	done := make(chan struct{})
	go func() {
		s.Checkpoint(0) // main is running; must return without parking
		close(done)
	}()
	<-done
}
