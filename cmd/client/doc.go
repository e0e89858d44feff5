// Package client is the IOStack conversational-agent client.
//
// A Client establishes (or adopts) a platform session, keeps its bearer
// credentials fresh, sends user messages, and decodes the streamed reply into
// the application's handlers.
//
// Typical use:
//
//	c, err := client.New(client.Config{
//	    AccessKey:              key,
//	    StreamFragmentHandlers: []client.StreamFragmentHandler{printFragment},
//	    ErrorHandlers:          []client.ErrorHandler{logError},
//	})
//	if err != nil { ... }
//	if err := c.StartSession(ctx, ""); err != nil { ... }
//	if err := c.SendMessage(ctx, "hello"); err != nil { ... }
//
// Errors are surfaced twice: once to the error handlers as text, and once as the
// returned error (*Error). Calling SendMessage before a session exists only
// notifies the error handlers. A token without an "exp" claim is returned
// without notification.
//
// A Client is not safe for concurrent use. Callers serialize StartSession and
// SendMessage; the running stream buffer is shared by all sends on one Client.
package client
