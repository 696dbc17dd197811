package broker

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/mkocikowski/kbroker/wire"
)

// Codec is the narrow collaborator the core delegates all payload framing
// to, per spec section 4.5 / 6. The core never interprets API bodies; it
// only needs to turn a RequestHeader into wire bytes, parse the fixed
// 8-byte response header, and hand the remaining response bytes back as an
// opaque, caller-inspectable ResponseBody.
type Codec interface {
	// EncodeHeader returns the 4-byte big-endian length prefix followed by
	// the encoded header, where the length covers header+bodySize (every
	// byte that will follow the length prefix on the wire).
	EncodeHeader(h RequestHeader, bodySize int) ([]byte, error)
	// DecodeHeader parses the fixed 8-byte response preamble:
	// [total_length:i32][correlation_id:i32], both big-endian.
	DecodeHeader(b [8]byte) (totalLength int32, correlationID int32)
	// WrapBody returns an opaque handle over the response bytes that
	// follow the correlation id.
	WrapBody(b []byte) ResponseBody
}

// ResponseBody is the opaque decoder handle delivered through a Waiter. It
// knows nothing about any particular API; Unmarshal defers to the wire
// package's reflection-based marshaling, the same mechanism the codec uses
// for request bodies (see api.Request.Marshal).
type ResponseBody struct {
	raw []byte
}

// Bytes returns the raw response payload (the bytes after the correlation
// id, before any API-specific decoding).
func (r ResponseBody) Bytes() []byte { return r.raw }

// Unmarshal decodes the response body into v using the same reflection
// based wire format the api/* packages use for requests.
func (r ResponseBody) Unmarshal(v interface{}) error {
	return wire.Read(bytes.NewReader(r.raw), reflect.ValueOf(v))
}

// DefaultCodec implements Codec using a fixed-layout header encoder
// (matching spec section 6 bit-for-bit, including proper nullable_string
// semantics) and the reflection-based wire package for bodies.
type DefaultCodec struct{}

var _ Codec = DefaultCodec{}

// EncodeHeader lays out:
//
//	[length:i32][api_key:i16][api_version:i16][correlation_id:i32][client_id:nullable_string]
//
// where length = 2+2+4+len(encoded client_id)+bodySize, i.e. every byte
// that follows the length field itself, including the request body that
// the caller will append separately.
func (DefaultCodec) EncodeHeader(h RequestHeader, bodySize int) ([]byte, error) {
	clientID, err := encodeNullableString(h.ClientId)
	if err != nil {
		return nil, err
	}

	headerSize := 2 + 2 + 4 + len(clientID)
	total := headerSize + bodySize
	if total < 0 || int64(total) > int64(^uint32(0)>>1) {
		return nil, fmt.Errorf("encoded request too large: %d bytes", total)
	}

	buf := make([]byte, 4+headerSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(total))
	binary.BigEndian.PutUint16(buf[4:6], uint16(h.ApiKey))
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.ApiVersion))
	binary.BigEndian.PutUint32(buf[8:12], uint32(h.CorrelationId))
	copy(buf[12:], clientID)
	return buf, nil
}

func (DefaultCodec) DecodeHeader(b [8]byte) (int32, int32) {
	totalLength := int32(binary.BigEndian.Uint32(b[0:4]))
	correlationID := int32(binary.BigEndian.Uint32(b[4:8]))
	return totalLength, correlationID
}

func (DefaultCodec) WrapBody(b []byte) ResponseBody {
	return ResponseBody{raw: b}
}

// encodeNullableString implements Kafka's NULLABLE_STRING: [len:i16][utf8
// bytes], with len == -1 denoting null. A plain Go string has no null
// state distinct from "", so this always encodes the non-null form; a
// zero-length client id comes out as len == 0, never len == -1.
func encodeNullableString(s string) ([]byte, error) {
	if len(s) > 1<<15-1 {
		return nil, fmt.Errorf("client id too long: %d bytes", len(s))
	}
	b := make([]byte, 2+len(s))
	binary.BigEndian.PutUint16(b[0:2], uint16(len(s)))
	copy(b[2:], s)
	return b, nil
}
