package client

import "github.com/iostack-ai/client-example/cmd/internal/stream"

// Handler signatures. Packet shapes live in contracts/stream/v1.
type (
	StreamFragmentHandler               = stream.FragmentHandler
	ErrorHandler                        = stream.ErrorHandler
	UseCaseNotificationHandler          = stream.UseCaseHandler
	ActiveNodeChangeNotificationHandler = stream.ActiveNodeChangeHandler
	ReferenceNotificationHandler        = stream.StreamedRefHandler
	DebugNotificationHandler            = stream.DebugHandler
)
