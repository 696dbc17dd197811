package broker

import (
	"github.com/emirpasic/gods/v2/lists/doublylinkedlist"
)

// RequestHeader is the fixed-shape header every request carries ahead of
// its opaque, already-encoded body. ApiVersion is supplied by the caller
// at Call time (see Codec contract): in this library it is baked into each
// api/* subpackage's NewRequest constructor as a compile-time constant per
// API key, rather than being a single value shared by every call a broker
// makes.
type RequestHeader struct {
	ApiKey        int16
	ApiVersion    int16
	CorrelationId int32
	ClientId      string
}

// callResult is what a result slot eventually carries: exactly one of Body
// or Err is meaningful.
type callResult struct {
	Body ResponseBody
	Err  error
}

// inFlightRequest is created by pushRequest (strand-only) and lives in the
// inflightQueue until its response (or failure) has been delivered.
type inFlightRequest struct {
	header        RequestHeader
	encodedHeader []byte
	body          []byte
	sent          bool
	result        chan callResult // buffered, capacity 1; producer sends at most once
}

// inflightQueue is a FIFO of *inFlightRequest, strand-local (no locking).
// It is backed by gods/v2's doubly linked list instead of a hand-rolled
// ring buffer or slice, giving O(1) push-back / pop-front without the
// amortized-copy behavior of a growing slice.
type inflightQueue struct {
	l *doublylinkedlist.List[*inFlightRequest]
}

func newInflightQueue() *inflightQueue {
	return &inflightQueue{l: doublylinkedlist.New[*inFlightRequest]()}
}

func (q *inflightQueue) pushBack(r *inFlightRequest) {
	q.l.Add(r)
}

func (q *inflightQueue) front() (*inFlightRequest, bool) {
	return q.l.Get(0)
}

func (q *inflightQueue) popFront() {
	if q.l.Empty() {
		return
	}
	q.l.Remove(0)
}

func (q *inflightQueue) empty() bool {
	return q.l.Empty()
}

func (q *inflightQueue) size() int {
	return q.l.Size()
}
