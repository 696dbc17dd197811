package broker

import (
	"io"
)

// readLoop owns the socket's read side for the lifetime of one connection.
// It runs on its own goroutine (started from connect, once, right after
// the handshake with the strand that hands over b.conn) and never touches
// broker state directly: every response it parses is handed back to the
// strand via Dispatch before being matched against the in-flight queue.
func (b *Broker) readLoop() {
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(b.conn, hdr[:]); err != nil {
			b.reportReadFailure(&NetworkError{Op: "read", Err: err})
			return
		}
		totalLength, correlationID := b.codec.DecodeHeader(hdr)
		bodyLen := int(totalLength) - 4 // totalLength covers correlation_id + body
		if bodyLen < 0 {
			b.reportReadFailure(&ProtocolError{Kind: DecodeError})
			return
		}
		body := make([]byte, bodyLen)
		if bodyLen > 0 {
			if _, err := io.ReadFull(b.conn, body); err != nil {
				b.reportReadFailure(&ProtocolError{Kind: ShortRead, Err: err})
				return
			}
		}
		if err := b.strand.Dispatch(b.deliverFunc(correlationID, body)); err != nil {
			return // strand already stopping; nothing left to deliver to
		}
	}
}

// deliverFunc closes over one parsed response and returns the strand-bound
// closure that matches it against the head of the in-flight queue.
func (b *Broker) deliverFunc(correlationID int32, body []byte) func() {
	return func() {
		b.deliverResponse(correlationID, body)
	}
}

// deliverResponse runs on the strand. Kafka guarantees in-order responses
// per connection, so the response at hand must belong to whatever request
// is at the head of the queue; any other correlation id means the byte
// stream and our bookkeeping have diverged, which is unrecoverable.
func (b *Broker) deliverResponse(correlationID int32, body []byte) {
	req, ok := b.inflt.front()
	if !ok {
		b.failConnection(&ProtocolError{Kind: CorrelationMismatch})
		return
	}
	if req.header.CorrelationId != correlationID {
		mismatch := &ProtocolError{Kind: CorrelationMismatch}
		b.inflt.popFront()
		select {
		case req.result <- callResult{Err: mismatch}:
		default:
		}
		b.failConnection(mismatch)
		return
	}
	b.inflt.popFront()
	select {
	case req.result <- callResult{Body: b.codec.WrapBody(body)}:
	default:
	}
	// The new head, if any, may still be unsent: this is the "kick the
	// writer" step, letting a request queued behind the one that just
	// completed take its turn on the wire.
	b.writeNext()
}

// reportReadFailure hands a terminal read-side error to the strand. Unlike
// a write failure, which fails only the head, it closes the connection and
// every in-flight request fails.
func (b *Broker) reportReadFailure(err error) {
	_ = b.strand.Dispatch(func() {
		b.failConnection(err)
	})
}
