package CreateTopics

import (
	kbroker "github.com/mkocikowski/kbroker"
)

type Response struct {
	ThrottleTimeMs int32
	Topics         []TopicResponse
}

func (r *Response) Err() error {
	if len(r.Topics) == 0 || r.Topics[0].ErrorCode == kbroker.ERR_NONE {
		return nil
	}
	return &kbroker.Error{Code: r.Topics[0].ErrorCode}
}

type TopicResponse struct {
	Name         string
	ErrorCode    int16
	ErrorMessage string
}
