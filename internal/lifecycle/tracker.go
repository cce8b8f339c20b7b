// Package lifecycle tracks the relay's drain state: how many upstream
// exchanges are outstanding and whether the input stream has closed. The
// process may terminate exactly when both the stream is closed and the
// outstanding count is zero, and at no point sooner.
package lifecycle

import "sync"

// Tracker owns the two pieces of shared state the dispatch and closure paths
// mutate. Exchanges run on their own goroutines, so access is mutex-guarded.
type Tracker struct {
	mu      sync.Mutex
	pending int
	closed  bool
	done    chan struct{}
	fired   bool
}

// NewTracker returns a Tracker in the running state.
func NewTracker() *Tracker {
	return &Tracker{done: make(chan struct{})}
}

// Begin records one dispatched exchange. Every Begin must be balanced by
// exactly one End on every exit path of the exchange.
func (t *Tracker) Begin() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending++
}

// End records one completed exchange, whatever its outcome.
func (t *Tracker) End() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending <= 0 {
		panic("lifecycle: End without matching Begin")
	}
	t.pending--
	t.maybeFireLocked()
}

// MarkClosed records that the input stream reached end-of-data. The flag is
// monotonic; calling MarkClosed again is a no-op.
func (t *Tracker) MarkClosed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.maybeFireLocked()
}

// Done returns a channel that closes once the stream is closed and no
// exchange is outstanding.
func (t *Tracker) Done() <-chan struct{} { return t.done }

// Pending returns the current outstanding-exchange count.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

func (t *Tracker) maybeFireLocked() {
	if t.closed && t.pending == 0 && !t.fired {
		t.fired = true
		close(t.done)
	}
}
