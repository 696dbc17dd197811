package Heartbeat

type Response struct {
	ThrottleTimeMs int32
	ErrorCode      int16
}
