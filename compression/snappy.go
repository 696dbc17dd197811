package compression

import (
	"github.com/golang/snappy"
)

// SnappyCodec implements batch.Compressor and batch.Decompressor using
// Google's snappy block format (not the java client's framed variant,
// which some older brokers also accept but this package does not
// produce).
type SnappyCodec struct{}

func (*SnappyCodec) Compress(b []byte) ([]byte, error) {
	return snappy.Encode(nil, b), nil
}

func (*SnappyCodec) Decompress(b []byte) ([]byte, error) {
	return snappy.Decode(nil, b)
}

func (*SnappyCodec) Type() int16 { return Snappy }
