package stream

import (
	"context"
	"sync/atomic"

	v1 "github.com/iostack-ai/client-example/contracts/stream/v1"
)

type (
	// FragmentHandler receives reply fragments with quotes unescaped.
	FragmentHandler func(ctx context.Context, fragment v1.Fragment)
	// ErrorHandler receives human-readable error messages.
	ErrorHandler func(ctx context.Context, message string)
	// UseCaseHandler receives use-case notifications other than node changes.
	UseCaseHandler func(ctx context.Context, notification v1.UseCaseNotification)
	// ActiveNodeChangeHandler receives graph_active_node_change notifications.
	ActiveNodeChangeHandler func(ctx context.Context, notification v1.ActiveNodeChange)
	// StreamedRefHandler receives streamed references.
	StreamedRefHandler func(ctx context.Context, ref v1.StreamedReference)
	// DebugHandler receives debug notifications.
	DebugHandler func(ctx context.Context, notification v1.Debug)
)

// Handlers is one set of the six callback registries.
type Handlers struct {
	Fragment         []FragmentHandler
	Error            []ErrorHandler
	UseCase          []UseCaseHandler
	ActiveNodeChange []ActiveNodeChangeHandler
	StreamedRef      []StreamedRefHandler
	Debug            []DebugHandler
}

// Registry publishes a Handlers set that can be swapped out as a whole.
type Registry struct {
	p atomic.Pointer[Handlers]
}

// NewRegistry returns a Registry holding a copy of h.
func NewRegistry(h Handlers) *Registry {
	r := &Registry{}
	cp := Handlers{
		Fragment:         append([]FragmentHandler(nil), h.Fragment...),
		Error:            append([]ErrorHandler(nil), h.Error...),
		UseCase:          append([]UseCaseHandler(nil), h.UseCase...),
		ActiveNodeChange: append([]ActiveNodeChangeHandler(nil), h.ActiveNodeChange...),
		StreamedRef:      append([]StreamedRefHandler(nil), h.StreamedRef...),
		Debug:            append([]DebugHandler(nil), h.Debug...),
	}
	r.p.Store(&cp)
	return r
}

// Load returns the current handler set. The result must not be modified.
func (r *Registry) Load() *Handlers {
	if h := r.p.Load(); h != nil {
		return h
	}
	return &Handlers{}
}

// Clear empties all six registries at once.
func (r *Registry) Clear() { r.p.Store(&Handlers{}) }
