// Package strand implements a single-goroutine serialization context: a
// mailbox of closures drained by one goroutine, so that handlers posted
// through Dispatch never run concurrently with each other. It is the Go
// stand-in for the asio-style "strand" the broker package is built around.
package strand

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// task is pooled to avoid an allocation per Dispatch call on busy strands.
type task struct {
	f  func()
	t0 time.Time
}

// Strand drains a channel of closures on one dedicated goroutine. All
// closures posted via Dispatch run strictly in the order they were
// successfully enqueued, and never overlap with each other.
type Strand struct {
	log *slog.Logger

	mailbox chan *task
	pool    sync.Pool

	done       chan struct{}
	closed     chan struct{}
	once       sync.Once
	inDispatch sync.WaitGroup
}

// New starts the strand's run loop on a new goroutine and returns
// immediately. mailboxSize bounds how many pending closures may queue before
// Dispatch blocks; Dispatch never drops work silently.
func New(log *slog.Logger, mailboxSize int) *Strand {
	if log == nil {
		log = slog.Default()
	}
	if mailboxSize < 1 {
		mailboxSize = 1
	}
	s := &Strand{
		log:     log,
		mailbox: make(chan *task, mailboxSize),
		pool: sync.Pool{
			New: func() any { return new(task) },
		},
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go s.run()
	return s
}

// Dispatch posts f onto the strand's mailbox and blocks until there is room.
// f will run on the strand's goroutine, serialized with every other posted
// closure. Dispatch returns an error, without running f, if the strand has
// already been stopped.
func (s *Strand) Dispatch(f func()) error {
	s.inDispatch.Add(1)
	defer s.inDispatch.Done()

	t, ok := s.pool.Get().(*task)
	if !ok {
		t = new(task)
	}
	t.f = f
	t.t0 = time.Now()

	select {
	case <-s.closed:
		s.pool.Put(t)
		return fmt.Errorf("strand: stopped")
	default:
	}

	select {
	case s.mailbox <- t:
		return nil
	case <-s.closed:
		s.pool.Put(t)
		return fmt.Errorf("strand: stopped")
	}
}

// DispatchContext is Dispatch but gives up if ctx is done before the closure
// is accepted onto the mailbox.
func (s *Strand) DispatchContext(ctx context.Context, f func()) error {
	s.inDispatch.Add(1)
	defer s.inDispatch.Done()

	t, ok := s.pool.Get().(*task)
	if !ok {
		t = new(task)
	}
	t.f = f
	t.t0 = time.Now()

	select {
	case <-s.closed:
		s.pool.Put(t)
		return fmt.Errorf("strand: stopped")
	default:
	}

	select {
	case s.mailbox <- t:
		return nil
	case <-s.closed:
		s.pool.Put(t)
		return fmt.Errorf("strand: stopped")
	case <-ctx.Done():
		s.pool.Put(t)
		return ctx.Err()
	}
}

func (s *Strand) run() {
	defer close(s.done)
	for t := range s.mailbox {
		s.runOne(t)
	}
}

func (s *Strand) runOne(t *task) {
	defer s.pool.Put(t)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("strand: closure panicked", "recovered", r)
		}
	}()
	t.f()
}

// Stop closes the mailbox and waits for any already-posted closures to
// finish running. Idempotent.
func (s *Strand) Stop() {
	s.once.Do(func() {
		close(s.closed)
		// Every Dispatch call already past the closed-check is counted
		// here; wait for them to finish their send attempt before closing
		// the mailbox, so we never close a channel a goroutine is blocked
		// sending on.
		s.inDispatch.Wait()
		close(s.mailbox)
	})
	<-s.done
}
