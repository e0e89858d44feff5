// Package v1 defines the streaming notification contract of the IOStack platform.
//
// The stream endpoint answers with UTF-8 text made of JSON packets, each one
// terminated by Delimiter. Every packet carries a "type" tag; the remaining
// fields depend on the type.
//
// This package is intentionally dependency-light so applications can share the
// packet shapes with their own handlers.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Delimiter terminates every packet on the wire.
const Delimiter = "__|__"

// Packet type tags (wire-stable).
const (
	// TypeFragment carries a slice of the agent's streamed reply.
	TypeFragment = "fragment"
	// TypeError reports a server-side failure and ends the stream.
	TypeError = "error"
	// TypeLLMStats carries model usage statistics. Clients ignore it.
	TypeLLMStats = "llm_stats"
	// TypeUseCaseNotification is a named use-case event.
	TypeUseCaseNotification = "use_case_notification"
	// TypeStreamedRef carries a reference (document, link, citation) streamed with the reply.
	TypeStreamedRef = "streamed_ref"
	// TypeDebug carries diagnostic data from the use-case graph.
	TypeDebug = "debug"
)

// NotificationActiveNodeChange is the use-case notification name emitted when the
// workflow graph moves to another node.
const NotificationActiveNodeChange = "graph_active_node_change"

// ErrEmptyPacket is returned by Decode for blank packets.
var ErrEmptyPacket = errors.New("empty packet")

// Envelope is the common header of every packet plus its raw bytes.
type Envelope struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// Decode parses the header of a single packet.
func Decode(packet string) (Envelope, error) {
	if strings.TrimSpace(packet) == "" {
		return Envelope{}, ErrEmptyPacket
	}

	var env Envelope
	if err := json.Unmarshal([]byte(packet), &env); err != nil {
		return Envelope{}, fmt.Errorf("decode packet: %w", err)
	}
	env.Raw = json.RawMessage(packet)
	return env, nil
}

// Unmarshal decodes the full packet into dst.
func (e Envelope) Unmarshal(dst any) error {
	if err := json.Unmarshal(e.Raw, dst); err != nil {
		return fmt.Errorf("decode %s packet: %w", e.Type, err)
	}
	return nil
}
