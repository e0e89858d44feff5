package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrBadRequest is returned for requests that cannot be built.
var ErrBadRequest = errors.New("invalid platform request")

// HTTPError is a non-2xx platform response.
type HTTPError struct {
	StatusCode int
	StatusText string
	// Message is the server's "message" field, falling back to "detail".
	Message string
}

func (e *HTTPError) Error() string {
	text := e.StatusText
	if text == "" {
		text = http.StatusText(e.StatusCode)
	}
	if text == "" {
		text = fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return text + ":" + e.Message
}
