/*
Package kbroker is a Kafka client-side connection engine: a per-broker,
actor-serialized TCP connection (see the broker package) plus the
record/batch building blocks and generated api/* request and response
types it runs on top of.

Project Scope

The engine focuses on the wire-level request/response round trip to one
broker at a time: framing requests, matching responses by correlation id,
and handling connect/disconnect. Topic/partition discovery, producing, and
consuming are built on top of it in the client package.

Design Decisions

1. Actor-serialized connections. Every broker connection is driven by a
single goroutine (internal/strand). Calls from any goroutine are safe, but
everything that touches connection state happens on the strand.

2. Wide use of reflection for bodies. Request and response bodies are
plain structs marshaled with the wire package's reflection-based codec.
The fixed-shape request/response header is hand-coded instead, since it
needs exact nullable_string semantics the general-purpose body codec
doesn't provide.

3. Limited use of data hiding. Most internal structures are exposed to
make debugging and metrics collection easier.
*/
package kbroker

import (
	"fmt"
	"time"

	"github.com/mkocikowski/kbroker/batch"
	"github.com/mkocikowski/kbroker/record"
)

func NewRecord(key, value []byte) *Record {
	return record.New(key, value)
}

type Record = record.Record

type Batch = batch.Batch

// DialTimeout is the default used by client package connections when
// dialing a broker or group coordinator directly (outside of the broker
// package's own Config.ConnectTimeout).
var DialTimeout = 5 * time.Second

// ConnectionTTL, if positive, bounds how long a client package connection
// is reused before being closed and re-opened on the next call, mirroring
// the broker's connections.max.idle.ms-style behavior from the client
// side. Zero (the default) disables the check.
var ConnectionTTL time.Duration

// Kafka protocol error codes used by client package response handling.
// Numeric values match the wire protocol's error_code field.
const (
	ERR_NONE                        int16 = 0
	ERR_OFFSET_OUT_OF_RANGE         int16 = 1
	ERR_CORRUPT_MESSAGE             int16 = 2
	ERR_UNKNOWN_TOPIC_OR_PARTITION  int16 = 3
	ERR_INVALID_REQUIRED_ACKS       int16 = 21
	ERR_ILLEGAL_GENERATION          int16 = 22
	ERR_INCONSISTENT_GROUP_PROTOCOL int16 = 23
	ERR_UNKNOWN_MEMBER_ID           int16 = 25
	ERR_INVALID_SESSION_TIMEOUT     int16 = 26
	ERR_REBALANCE_IN_PROGRESS       int16 = 27
	ERR_INVALID_PARTITIONS          int16 = 37
	ERR_INVALID_REPLICATION_FACTOR  int16 = 38
	ERR_TOPIC_ALREADY_EXISTS        int16 = 36
)

// Error wraps a Kafka protocol error code so it can be compared with
// errors.As/errors.Is while still rendering a human-readable message.
type Error struct {
	Code int16
}

func (e *Error) Error() string {
	return fmt.Sprintf("kafka error code %d", e.Code)
}
