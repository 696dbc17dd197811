package broker

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// The strand's run goroutine, and readLoop, only exit once
	// Close/CloseAndFail has run; every test below defers or cleans one
	// up, so goleak should see nothing left behind.
	goleak.VerifyTestMain(m)
}

// fakeServer is a single-connection Kafka-ish server used to drive the
// reader/writer halves of Broker without a real cluster. It hands the
// accepted connection's raw frames to the test over a channel so each test
// can script exactly how the server responds.
type fakeServer struct {
	ln     net.Listener
	accept chan net.Conn
}

func newFakeServer(t *testing.T) *fakeServer {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	fs := &fakeServer{ln: ln, accept: make(chan net.Conn, 1)}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		fs.accept <- conn
	}()
	t.Cleanup(func() { ln.Close() })
	return fs
}

func (fs *fakeServer) addr() string { return fs.ln.Addr().String() }

func (fs *fakeServer) conn(t *testing.T) net.Conn {
	t.Helper()
	select {
	case c := <-fs.accept:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for broker to connect")
		return nil
	}
}

// readRequest reads one full request frame (length-prefixed) off conn and
// returns the bytes after the length field, plus the correlation id parsed
// out of the fixed header.
func readRequest(t *testing.T, conn net.Conn) (correlationID int32, rest []byte) {
	t.Helper()
	var lenBuf [4]byte
	_, err := io.ReadFull(conn, lenBuf[:])
	require.NoError(t, err)
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	// api_key(2) api_version(2) correlation_id(4) ...
	correlationID = int32(binary.BigEndian.Uint32(buf[4:8]))
	return correlationID, buf
}

// writeResponse writes one length-prefixed [correlation_id][body] frame.
func writeResponse(t *testing.T, conn net.Conn, correlationID int32, body []byte) {
	t.Helper()
	total := 4 + len(body)
	out := make([]byte, 4+total)
	binary.BigEndian.PutUint32(out[0:4], uint32(total))
	binary.BigEndian.PutUint32(out[4:8], uint32(correlationID))
	copy(out[8:], body)
	_, err := conn.Write(out)
	require.NoError(t, err)
}

func newTestBroker(t *testing.T, addr string) *Broker {
	b := New(addr, Config{ClientId: "test-client"})
	t.Cleanup(b.Close)
	return b
}

// dialerFunc adapts a plain function to the Dialer interface.
type dialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

func (f dialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return f(ctx, network, address)
}

// failWriteConn wraps a net.Conn and forces the first n calls to Write to
// fail, then behaves normally. Only ever touched from the strand goroutine
// (writeNext is the sole caller of Write on the broker side), so it needs
// no locking of its own.
type failWriteConn struct {
	net.Conn
	n int
}

func (c *failWriteConn) Write(b []byte) (int, error) {
	if c.n > 0 {
		c.n--
		return 0, fmt.Errorf("injected write failure")
	}
	return c.Conn.Write(b)
}

func TestCallHappyPath(t *testing.T) {
	fs := newFakeServer(t)
	b := newTestBroker(t, fs.addr())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.WaitForConnect(ctx))

	conn := fs.conn(t)
	w := b.Call(18, 3, []byte{0x01, 0x02})

	correlationID, req := readRequest(t, conn)
	require.Equal(t, int16(18), int16(binary.BigEndian.Uint16(req[0:2])))
	require.Equal(t, int16(3), int16(binary.BigEndian.Uint16(req[2:4])))

	writeResponse(t, conn, correlationID, []byte{0xAA, 0xBB})

	resp, err := w.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAA, 0xBB}, resp.Bytes())
}

func TestCallOrderingPreservedAcrossTwoRequests(t *testing.T) {
	fs := newFakeServer(t)
	b := newTestBroker(t, fs.addr())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.WaitForConnect(ctx))
	conn := fs.conn(t)

	w1 := b.Call(0, 0, []byte{1})
	w2 := b.Call(0, 0, []byte{2})

	// The writer never pipelines: R2's frame must not hit the wire until
	// R1's response has been read and popped.
	id1, _ := readRequest(t, conn)
	writeResponse(t, conn, id1, []byte{0x01})

	r1, err := w1.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, r1.Bytes())

	id2, _ := readRequest(t, conn)
	require.NotEqual(t, id1, id2)
	writeResponse(t, conn, id2, []byte{0x02})

	r2, err := w2.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte{0x02}, r2.Bytes())
}

// TestWriteFailureFailsOnlyHeadAndLeavesConnectionOpen covers Scenario 5:
// a write failure on R_a's frame fails h_a with a NetworkError and pops
// it, but does not close the connection; R_b, submitted right behind it,
// gets its turn on the wire and completes normally.
func TestWriteFailureFailsOnlyHeadAndLeavesConnectionOpen(t *testing.T) {
	fs := newFakeServer(t)
	fw := &failWriteConn{n: 1}
	dialer := dialerFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
		conn, err := (&net.Dialer{}).DialContext(ctx, network, address)
		if err != nil {
			return nil, err
		}
		fw.Conn = conn
		return fw, nil
	})
	b := New(fs.addr(), Config{Dialer: dialer})
	t.Cleanup(b.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.WaitForConnect(ctx))
	conn := fs.conn(t)

	wa := b.Call(0, 0, []byte{1})
	ra, err := wa.Wait(ctx)
	require.Error(t, err)
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Equal(t, "write", netErr.Op)
	require.Equal(t, ResponseBody{}, ra)
	require.False(t, b.IsClosed())

	wb := b.Call(0, 0, []byte{2})
	idB, _ := readRequest(t, conn)
	writeResponse(t, conn, idB, []byte{0xCC})

	rb, err := wb.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte{0xCC}, rb.Bytes())
}

func TestCorrelationMismatchFailsConnection(t *testing.T) {
	fs := newFakeServer(t)
	b := newTestBroker(t, fs.addr())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.WaitForConnect(ctx))
	conn := fs.conn(t)

	w := b.Call(0, 0, []byte{1})
	correlationID, _ := readRequest(t, conn)
	writeResponse(t, conn, correlationID+1, []byte{0xFF})

	_, err := w.Wait(ctx)
	require.Error(t, err)
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Equal(t, CorrelationMismatch, protoErr.Kind)

	require.Eventually(t, b.IsClosed, time.Second, 10*time.Millisecond)
}

func TestCallAfterCloseResolvesImmediately(t *testing.T) {
	fs := newFakeServer(t)
	b := New(fs.addr(), Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.WaitForConnect(ctx))
	fs.conn(t)

	b.Close()

	w := b.Call(0, 0, nil)
	resp, err := w.Wait(ctx)
	require.ErrorIs(t, err, ErrClosed)
	require.Equal(t, ResponseBody{}, resp)
}

func TestCloseFailsPendingCall(t *testing.T) {
	fs := newFakeServer(t)
	b := New(fs.addr(), Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.WaitForConnect(ctx))
	fs.conn(t)

	w := b.Call(0, 0, nil)
	b.Close()

	_, err := w.Wait(ctx)
	require.ErrorIs(t, err, ErrClosed)
}

func TestWaitForConnectFailsWhenUnreachable(t *testing.T) {
	// Nothing listens on this address, so the dial fails with
	// connection-refused; WaitForConnect surfaces any dial failure the
	// same way it surfaces the broker's own ConnectTimeout expiring, as
	// ErrClosed.
	b := New("127.0.0.1:1", Config{ConnectTimeout: 200 * time.Millisecond})
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := b.WaitForConnect(ctx)
	require.ErrorIs(t, err, ErrClosed)
}

// TestWaitForConnectCallerTimeoutLeavesConnectInProgress covers Scenario
// 4: a caller's wait times out before the dial resolves, but the
// connection stays Connecting and the dial keeps running, rather than
// being cancelled along with that one caller's context.
func TestWaitForConnectCallerTimeoutLeavesConnectInProgress(t *testing.T) {
	fs := newFakeServer(t)
	release := make(chan struct{})
	dialer := dialerFunc(func(ctx context.Context, network, address string) (net.Conn, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return (&net.Dialer{}).DialContext(ctx, network, address)
	})
	b := New(fs.addr(), Config{Dialer: dialer, ConnectTimeout: 5 * time.Second})
	t.Cleanup(b.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := b.WaitForConnect(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The waiter gave up, but the dial it kicked off keeps going: state
	// is still Connecting, not Closed.
	require.Equal(t, stateConnecting, b.lc.get())

	close(release)

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	require.NoError(t, b.WaitForConnect(ctx2))
	fs.conn(t)
}

func TestShortResponseBodyFailsConnection(t *testing.T) {
	fs := newFakeServer(t)
	b := newTestBroker(t, fs.addr())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.WaitForConnect(ctx))
	conn := fs.conn(t)

	w := b.Call(0, 0, []byte{1})
	correlationID, _ := readRequest(t, conn)

	// Declare a body longer than what's actually sent, then close: the
	// reader's io.ReadFull on the body will see EOF before it has enough
	// bytes.
	var frame [8]byte
	binary.BigEndian.PutUint32(frame[0:4], uint32(4+16))
	binary.BigEndian.PutUint32(frame[4:8], uint32(correlationID))
	_, err := conn.Write(frame[:])
	require.NoError(t, err)
	_, err = conn.Write([]byte{0x01, 0x02})
	require.NoError(t, err)
	conn.Close()

	_, err = w.Wait(ctx)
	require.Error(t, err)
	require.Eventually(t, b.IsClosed, time.Second, 10*time.Millisecond)
}
