package broker

import "sync"

// connState is the connection lifecycle: Init -> Connecting -> Connected ->
// Closed, with a direct path to Closed from any of the first three. Closed
// is terminal.
type connState int

const (
	stateInit connState = iota
	stateConnecting
	stateConnected
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateInit:
		return "Init"
	case stateConnecting:
		return "Connecting"
	case stateConnected:
		return "Connected"
	case stateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// lifecycle guards connState. It is the one piece of broker state touched
// directly from off-strand goroutines (every other piece of state is
// strand-local). The spec calls for a mutex plus a condition variable that
// broadcasts every transition out of Connecting; a closed-once channel is
// the idiomatic Go equivalent of that one-shot broadcast, so `left` plays
// the condition variable's role without requiring every waiter to spin up
// its own goroutine to make sync.Cond selectable against a context.
type lifecycle struct {
	mu    sync.Mutex
	state connState
	left  chan struct{} // closed exactly once, the moment state leaves Connecting
}

func newLifecycle() *lifecycle {
	return &lifecycle{state: stateInit}
}

func (l *lifecycle) get() connState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// snapshot returns the current state and, if Connecting, the channel that
// will close when it stops being Connecting.
func (l *lifecycle) snapshot() (connState, <-chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state, l.left
}

// tryBeginConnecting transitions Init -> Connecting. It reports whether
// this call performed the transition (single-attempt: only the first
// caller to observe Init wins) and, on success, the channel waiters should
// select on.
func (l *lifecycle) tryBeginConnecting() (bool, <-chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != stateInit {
		return false, nil
	}
	l.state = stateConnecting
	l.left = make(chan struct{})
	return true, l.left
}

func (l *lifecycle) setConnected() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != stateConnecting {
		return // a concurrent close already won
	}
	l.state = stateConnected
	close(l.left)
	l.left = nil
}

// setClosed transitions to Closed from any non-terminal state and reports
// whether this call performed the transition (idempotent).
func (l *lifecycle) setClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == stateClosed {
		return false
	}
	wasConnecting := l.state == stateConnecting
	l.state = stateClosed
	if wasConnecting {
		close(l.left)
		l.left = nil
	}
	return true
}
