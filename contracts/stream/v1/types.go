package v1

import "strings"

// Fragment is a slice of the agent's reply. Final marks the last fragment of a turn.
type Fragment struct {
	Type     string `json:"type"`
	Fragment string `json:"fragment"`
	Final    bool   `json:"final"`
}

// Unescape removes the backslash the platform places before single quotes.
func (f Fragment) Unescape() Fragment {
	f.Fragment = strings.ReplaceAll(f.Fragment, `\'`, "'")
	return f
}

// ErrorPacket reports a failure that terminates the stream.
type ErrorPacket struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// UseCaseNotification is a named use-case event. Data holds the event payload
// in whatever JSON shape the use case emits, and Raw the whole packet for
// handlers that need fields beyond name/data.
type UseCaseNotification struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Data any    `json:"data,omitempty"`

	Raw []byte `json:"-"`
}

// ActiveNodeChangePayload describes the node the use-case graph moved to.
type ActiveNodeChangePayload struct {
	ActiveNode     string `json:"active_node"`
	ActiveNodeCode string `json:"active_node_code"`
	Assembly       any    `json:"assembly,omitempty"`
}

// ActiveNodeChange is the graph_active_node_change use-case notification.
type ActiveNodeChange struct {
	Type string                  `json:"type"`
	Name string                  `json:"name"`
	Data ActiveNodeChangePayload `json:"data"`
}

// StreamedReference carries a reference emitted alongside the reply. Value is
// usually an object or a URL string.
type StreamedReference struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// Debug carries diagnostic data.
type Debug struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	Data any    `json:"data,omitempty"`
}
