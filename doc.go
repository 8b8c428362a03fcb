// Package uthread is a cooperative/preemptive user-space thread
// library: it schedules many application-defined user threads, one of
// them at a time designated as running, by a virtual-time timer
// signal. Each user thread is backed by its own goroutine; these
// goroutines are not confined to a single kernel thread.
//
// Context switches are realized as goroutine parks/wakes over a
// rendezvous channel rather than raw register-file save/restore (see
// internal/sched's doc comments); asynchronous preemption is driven by
// a real ITIMER_VIRTUAL/SIGVTALRM timer (internal/timerctl), with the
// caveat that a preempted thread actually stops running only when it
// calls Checkpoint, blocks itself or terminates itself, rather than at
// the exact instant the timer fires.
//
// A minimal program:
//
//	err := uthread.Init([]int{100_000})
//	if err != nil {
//		log.Fatal(err)
//	}
//	id, _ := uthread.Spawn(func() {
//		me, _ := uthread.RunningID()
//		fmt.Println("hello from", me)
//	}, 0)
//	_ = id
package uthread
