package client

import (
	"context"
	"errors"

	"github.com/iostack-ai/client-example/cmd/internal/transport"
)

var (
	// ErrConfig is returned by New for invalid configuration.
	ErrConfig = errors.New("invalid client config")

	// ErrNoSession is the precondition failure for calls that need a session.
	ErrNoSession = errors.New("session has not yet been established")

	// ErrSessionStarted is returned when StartSession is called twice on one Client.
	ErrSessionStarted = errors.New("session already started")

	// ErrSessionNotIssued is returned when session establishment yields no session id.
	ErrSessionNotIssued = errors.New("platform returned no session id")
)

// msgNoSession is the text error handlers receive for ErrNoSession.
const msgNoSession = "Session has not yet been established"

// Error is a failure that has already been delivered to the error handlers.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// reportError delivers a failed platform response to the error handlers.
func (c *Client) reportError(ctx context.Context, herr *transport.HTTPError) string {
	msg := herr.Error()
	c.log.Error("client.error", "status", herr.StatusCode, "message", herr.Message)
	_ = c.dispatcher.Report(ctx, msg)
	return msg
}

// reportErrorString delivers "title - message" to the error handlers.
func (c *Client) reportErrorString(ctx context.Context, title, message string) {
	c.log.Error("client.error", "op", title, "message", message)
	_ = c.dispatcher.Report(ctx, title+" - "+message)
}
