package api

import (
	"bytes"
	"reflect"

	"github.com/mkocikowski/kbroker/wire"
)

// https://kafka.apache.org/protocol
// https://kafka.apache.org/documentation/#messageformat
// https://cwiki.apache.org/confluence/display/KAFKA/A+Guide+To+The+Kafka+Protocol#AGuideToTheKafkaProtocol-Messagesets

// Request pairs an API body with the api_key/api_version a broker.Call
// needs to frame it. Header fields (correlation id, client id, the length
// prefix) are no longer part of Request: broker.Codec owns those, and
// Marshal only ever produces the body bytes that follow the header on the
// wire.
type Request struct {
	ApiKey     int16
	ApiVersion int16
	Body       interface{}
}

// Marshal encodes Body using the reflection-based wire format, returning
// the bytes broker.Call expects as its body argument.
func (r *Request) Marshal() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := wire.Write(buf, reflect.ValueOf(r.Body)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
