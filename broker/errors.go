package broker

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by Call and WaitForConnect once the broker has
// transitioned to Closed. Call also returns it for a request made before
// the connection has been established.
var ErrClosed = errors.New("broker: closed")

// ErrConnectTimeout is returned by WaitForConnect when the supplied
// deadline expires while the broker is still Connecting.
var ErrConnectTimeout = errors.New("broker: connect timeout")

// NetworkError wraps a socket-level failure: resolve, connect, read or
// write. A NetworkError on the reader path closes the connection; one on
// the writer path fails only the request being written and leaves the
// connection open.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("broker: network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// EncodeError wraps a failure to encode a request header.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("broker: failed to encode request header: %v", e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// ProtocolErrorKind enumerates the ways the response framing can be found
// inconsistent with what the core expects.
type ProtocolErrorKind int

const (
	// CorrelationMismatch: the correlation id read back did not match the
	// id of the request at the head of the in-flight queue.
	CorrelationMismatch ProtocolErrorKind = iota
	// ShortRead: fewer bytes were read than the declared frame length.
	ShortRead
	// DecodeError: the 8-byte response header itself could not be parsed.
	DecodeError
)

func (k ProtocolErrorKind) String() string {
	switch k {
	case CorrelationMismatch:
		return "CorrelationMismatch"
	case ShortRead:
		return "ShortRead"
	case DecodeError:
		return "DecodeError"
	default:
		return "Unknown"
	}
}

// ProtocolError is fatal: observing one always closes the connection,
// because the byte stream is no longer trustworthy.
type ProtocolError struct {
	Kind ProtocolErrorKind
	Err  error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("broker: protocol error (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("broker: protocol error (%s)", e.Kind)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
