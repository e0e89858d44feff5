package stream

import "errors"

// ErrDecode wraps packets that are not valid JSON.
var ErrDecode = errors.New("stream decode failed")

// ServerError is returned when the platform sends an error packet.
// Error handlers have already received Message when it is returned.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return "server error"
	}
	return e.Message
}
