package sched

import "testing"

func TestTickWithEmptyReadyQueueReprogramsAndContinues(t *testing.T) {
	s, err := Init([]int{longQuantum})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer s.teardown()

	before := s.RunningID()
	s.tick()
	if s.RunningID() != before {
		t.Errorf("RunningID changed on an empty-queue tick: %d -> %d", before, s.RunningID())
	}
	if s.MetricsSnapshot().Ticks != 1 {
		t.Errorf("Ticks = %d, want 1", s.MetricsSnapshot().Ticks)
	}
}

func TestTickDispatchesNextReadyThread(t *testing.T) {
	s, err := Init([]int{longQuantum})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer s.teardown()

	block := make(chan struct{})
	id, err := s.Spawn(func() { <-block }, 0)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	s.tick()

	if s.RunningID() != id {
		t.Errorf("RunningID = %d after tick, want %d", s.RunningID(), id)
	}
}

func TestTickSkipsBlockedAndDropsTerminated(t *testing.T) {
	s, err := Init([]int{longQuantum})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer s.teardown()

	blockedBlock := make(chan struct{})
	blockedID, err := s.Spawn(func() { <-blockedBlock }, 0)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := s.Block(blockedID); err != nil {
		t.Fatalf("Block: %v", err)
	}

	termBlock := make(chan struct{})
	termID, err := s.Spawn(func() { <-termBlock }, 0)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	runBlock := make(chan struct{})
	readyID, err := s.Spawn(func() { <-runBlock }, 0)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	// Put a stale BLOCKED entry and a TERMINATED entry ahead of the
	// ready thread in the queue.
	s.mu.Lock()
	s.threads[termID].SetState(Terminated)
	s.ready = []int{blockedID, termID, readyID}
	s.mu.Unlock()

	s.tick()

	if s.RunningID() != readyID {
		t.Errorf("RunningID = %d, want the ready thread %d (blocked thread %d must be skipped)",
			s.RunningID(), readyID, blockedID)
	}
	s.mu.Lock()
	dropped := s.threads[termID] == nil
	s.mu.Unlock()
	if !dropped {
		t.Errorf("terminated thread %d still occupies its slot after tick", termID)
	}
}

func TestTickReappendsRunningThreadToTail(t *testing.T) {
	s, err := Init([]int{longQuantum})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer s.teardown()

	blockA := make(chan struct{})
	a, err := s.Spawn(func() { <-blockA }, 0)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	blockB := make(chan struct{})
	b, err := s.Spawn(func() { <-blockB }, 0)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	s.tick() // main -> a, main appended to tail; queue is now [b, main]
	if s.RunningID() != a {
		t.Fatalf("RunningID = %d, want %d", s.RunningID(), a)
	}

	s.tick() // a -> b, a appended to tail; queue is now [main, a]
	if s.RunningID() != b {
		t.Fatalf("RunningID = %d, want %d", s.RunningID(), b)
	}

	s.tick() // b -> main, b appended to tail; queue is now [a, b]
	if s.RunningID() != 0 {
		t.Fatalf("RunningID = %d, want main (0)", s.RunningID())
	}
}
