package broker

// pushRequest runs on the strand. If no connection has been established
// yet, it resolves the request with ErrClosed without queueing it.
// Otherwise it assigns the next correlation id, encodes the header, and
// appends the request to the in-flight queue,
// then calls writeNext to give the writer a chance to run. It never
// writes to the socket itself: writeNext is the only path that does,
// and only ever for the entry currently at the head of the queue.
func (b *Broker) pushRequest(apiKey, apiVersion int16, body []byte, w *Waiter) {
	if b.conn == nil {
		w.result <- callResult{Err: ErrClosed}
		return
	}

	h := RequestHeader{
		ApiKey:        apiKey,
		ApiVersion:    apiVersion,
		CorrelationId: b.nextCorrelationID(),
		ClientId:      b.cfg.ClientId,
	}

	header, err := b.codec.EncodeHeader(h, len(body))
	if err != nil {
		w.result <- callResult{Err: &EncodeError{Err: err}}
		return
	}

	b.inflt.pushBack(&inFlightRequest{header: h, encodedHeader: header, body: body, result: w.result})
	b.writeNext()
}

// writeNext runs on the strand. It is the only place that writes to the
// socket, and it only ever writes the queue head: if the head has already
// been sent, it returns without touching the wire, preserving the
// single-writer invariant (at most one request outstanding, unanswered,
// at a time). Called after every push and again after the reader pops a
// completed response, so a queued-but-unsent head eventually gets its
// turn.
//
// A write failure fails only the head's result slot with a NetworkError
// and pops it; the connection is left open, since the failure may be
// transient, and the loop tries the new head in its place. This can
// cascade: a socket in a bad enough state to fail one write will usually
// fail the next one too.
func (b *Broker) writeNext() {
	for {
		req, ok := b.inflt.front()
		if !ok || req.sent {
			return
		}
		if err := b.writeFrame(req.encodedHeader, req.body); err != nil {
			b.inflt.popFront()
			select {
			case req.result <- callResult{Err: &NetworkError{Op: "write", Err: err}}:
			default:
			}
			continue
		}
		req.sent = true
		return
	}
}

// writeFrame issues exactly two writes: the header (length prefix
// included) and then the body. Kafka frames have no trailer, so nothing
// else needs to be flushed.
func (b *Broker) writeFrame(header, body []byte) error {
	if _, err := b.conn.Write(header); err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	if _, err := b.conn.Write(body); err != nil {
		return err
	}
	return nil
}

// failConnection runs on the strand after a read or protocol error, never
// after a plain write failure (writeNext handles those itself, without
// closing anything). It marks the lifecycle Closed immediately so Call's
// fast path starts rejecting new requests right away, then hands the
// actual teardown (stopping the strand, draining the in-flight queue) to
// a fresh goroutine: teardown calls Strand.Stop, which would deadlock if
// invoked from inside the strand's own run loop.
func (b *Broker) failConnection(err error) {
	b.lc.setClosed()
	if b.conn != nil {
		b.conn.Close()
	}
	go b.teardown(err)
}

