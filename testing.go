package uthread

import "sync"

// Recorder tracks the order in which user-thread entry points reach
// some point of interest, for tests that assert on dispatch order
// without sleeping on wall-clock time.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends an event; it is safe to call concurrently.
func (r *Recorder) Record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the events recorded so far, in order.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

// Reset clears all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Gate is a one-shot rendezvous point for tests that need an entry
// function to block until the test driver releases it, independent of
// the library's own block/resume (which is what is under test). It
// wraps a plain channel close, the simplest form of broadcast wakeup;
// once opened, a Gate stays open.
type Gate struct {
	mu sync.Mutex
	ch chan struct{}
}

// NewGate creates a closed gate (Wait blocks until Open is called).
func NewGate() *Gate {
	return &Gate{ch: make(chan struct{})}
}

// Wait blocks until Open is called.
func (g *Gate) Wait() {
	g.mu.Lock()
	ch := g.ch
	g.mu.Unlock()
	<-ch
}

// Open releases every goroutine currently in Wait.
func (g *Gate) Open() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.ch:
		// already open
	default:
		close(g.ch)
	}
}
