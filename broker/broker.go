// Package broker implements the per-connection Kafka client engine: a
// single TCP connection to one broker, wrapped in an actor-style strand so
// that every piece of mutable connection state (the in-flight request
// queue, the socket, the codec) is only ever touched from one goroutine at
// a time. Callers interact with it exclusively through Call and
// WaitForConnect; everything else happens off-stage on the strand.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/mkocikowski/kbroker/internal/strand"
)

// Dialer abstracts the one network call the broker package itself makes,
// so tests can substitute a fake listener without touching DNS or real
// sockets.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config bundles the knobs Broker needs beyond the bare address. ClientId
// is stamped into every request header's nullable client_id field.
type Config struct {
	ClientId       string
	Dialer         Dialer
	ConnectTimeout time.Duration
	MailboxSize    int
	Log            *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Dialer == nil {
		c.Dialer = &net.Dialer{}
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.MailboxSize <= 0 {
		c.MailboxSize = 64
	}
	if c.Log == nil {
		c.Log = slog.Default()
	}
	return c
}

// Waiter is the one-shot result slot returned by Call. Wait blocks until
// either the broker delivers a response, the connection fails, or ctx is
// done.
type Waiter struct {
	result chan callResult
}

// Wait blocks for the response to the associated call, or returns ctx's
// error if ctx is done first. Calling Wait more than once, or concurrently,
// is not supported: the channel is drained exactly once.
func (w *Waiter) Wait(ctx context.Context) (ResponseBody, error) {
	select {
	case r := <-w.result:
		return r.Body, r.Err
	case <-ctx.Done():
		return ResponseBody{}, ctx.Err()
	}
}

// Broker is one connection to one Kafka broker address. The zero value is
// not usable; construct with New.
type Broker struct {
	addr   string
	cfg    Config
	codec  Codec
	lc     *lifecycle
	strand *strand.Strand

	teardownOnce sync.Once

	// strand-local; never touched off-strand.
	conn   net.Conn
	inflt  *inflightQueue
	nextID int32 // correlation ids start at 1, not 0
}

// New constructs a Broker for addr (host:port) but does not dial; call
// WaitForConnect to establish the connection.
func New(addr string, cfg Config) *Broker {
	cfg = cfg.withDefaults()
	b := &Broker{
		addr:   addr,
		cfg:    cfg,
		codec:  DefaultCodec{},
		lc:     newLifecycle(),
		strand: strand.New(cfg.Log, cfg.MailboxSize),
		inflt:  newInflightQueue(),
		nextID: 1,
	}
	return b
}

// IsConnected reports whether the broker's lifecycle is currently
// Connected. The answer can be stale by the time the caller acts on it;
// it is a hint, not a guarantee.
func (b *Broker) IsConnected() bool { return b.lc.get() == stateConnected }

// IsClosed reports whether the broker has transitioned to Closed.
func (b *Broker) IsClosed() bool { return b.lc.get() == stateClosed }

// WaitForConnect dials the broker if no connect attempt has started yet,
// and blocks until the connection is Connected, Closed, or ctx is done.
// Concurrent callers all observe the same single connect attempt: only the
// first caller to find the broker in Init actually dials. If ctx's deadline
// expires first, the returned error wraps both ErrConnectTimeout and
// context.DeadlineExceeded; any other ctx cancellation returns ctx.Err().
func (b *Broker) WaitForConnect(ctx context.Context) error {
	state, left := b.lc.snapshot()
	switch state {
	case stateConnected:
		return nil
	case stateClosed:
		return ErrClosed
	case stateInit:
		if started, ch := b.lc.tryBeginConnecting(); started {
			left = ch
			go b.connect()
		} else {
			_, left = b.lc.snapshot()
		}
	case stateConnecting:
		// left already set from the snapshot above.
	}

	if left == nil {
		// A connect attempt resolved between snapshot and here.
		switch b.lc.get() {
		case stateConnected:
			return nil
		default:
			return ErrClosed
		}
	}

	select {
	case <-left:
		switch b.lc.get() {
		case stateConnected:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrConnectTimeout, ctx.Err())
		}
		return ctx.Err()
	}
}

// connect performs the actual dial and, on success, starts the reader
// loop and flips the lifecycle to Connected. Runs off-strand (it owns the
// strand-local b.conn only after success, handed over via Dispatch).
//
// Its context is its own, derived from Background with the broker's own
// ConnectTimeout, never from a caller's WaitForConnect ctx: the attempt
// is shared by every current and future waiter, so no single waiter's
// deadline or cancellation may cut it short. A waiter that times out
// just stops waiting; the connect attempt, and the Connecting state,
// both live on until it resolves or an explicit Close intervenes.
func (b *Broker) connect() {
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.ConnectTimeout)
	defer cancel()

	conn, err := b.cfg.Dialer.DialContext(ctx, "tcp", b.addr)
	if err != nil {
		b.cfg.Log.Error("broker: dial failed", "addr", b.addr, "err", err)
		b.teardown(&NetworkError{Op: "dial", Err: err})
		return
	}

	err = b.strand.Dispatch(func() {
		b.conn = conn
		b.lc.setConnected()
		go b.readLoop()
	})
	if err != nil {
		conn.Close()
		b.teardown(ErrClosed)
	}
}

// Call encodes and enqueues a request, returning a Waiter whose result
// will be delivered once the broker replies (or the connection fails).
// apiVersion is the caller's compile-time choice of protocol version for
// apiKey; body is the already-marshaled request payload (see
// api.Request.Marshal). If the broker is Closed, the Waiter resolves
// immediately with ErrClosed rather than blocking. A Call made before the
// connection is established (before WaitForConnect has returned nil) also
// resolves with ErrClosed: requests are not queued ahead of the connection.
func (b *Broker) Call(apiKey, apiVersion int16, body []byte) *Waiter {
	w := &Waiter{result: make(chan callResult, 1)}

	if b.lc.get() == stateClosed {
		w.result <- callResult{Err: ErrClosed}
		return w
	}

	err := b.strand.Dispatch(func() {
		b.pushRequest(apiKey, apiVersion, body, w)
	})
	if err != nil {
		w.result <- callResult{Err: ErrClosed}
	}
	return w
}

// Close tears down the connection, stops the strand, and then fails every
// in-flight and not-yet-sent request with ErrClosed. Safe to call more
// than once and from any goroutine.
func (b *Broker) Close() {
	b.CloseAndFail(ErrClosed)
}

// CloseAndFail is Close but delivers err (instead of ErrClosed) to every
// request still waiting for a response. Use this from a caller that wants
// its own in-flight requests to see a more specific cause than "closed".
func (b *Broker) CloseAndFail(err error) {
	b.teardown(err)
}

// teardown is the single path that ever stops the strand, and it runs at
// most once: a write or read failure can race a caller's explicit Close,
// and either side might observe the lifecycle as already-Closed and skip
// straight to here. teardownOnce, not lifecycle.setClosed, is what makes
// the actual shutdown (closing the socket, stopping the strand, draining
// the queue) happen exactly once.
//
// teardown must never be called from the strand's own goroutine: Stop
// blocks until the run loop exits, which can't happen while the run loop
// is itself blocked inside the closure calling teardown.
func (b *Broker) teardown(err error) {
	b.teardownOnce.Do(func() {
		b.lc.setClosed()
		_ = b.strand.Dispatch(func() {
			if b.conn != nil {
				b.conn.Close()
			}
		})
		b.strand.Stop()
		for {
			r, ok := b.inflt.front()
			if !ok {
				break
			}
			b.inflt.popFront()
			select {
			case r.result <- callResult{Err: err}:
			default:
			}
		}
	})
}

func (b *Broker) nextCorrelationID() int32 {
	id := b.nextID
	b.nextID++
	return id
}
