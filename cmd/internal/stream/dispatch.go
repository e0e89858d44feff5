package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/iostack-ai/client-example/cmd/internal/metrics"
	v1 "github.com/iostack-ai/client-example/contracts/stream/v1"
)

// Dispatcher routes decoded packets to the registry's handlers.
type Dispatcher struct {
	registry   *Registry
	log        *slog.Logger
	metrics    *metrics.Metrics
	concurrent bool
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithConcurrentHandlers runs each registry's handlers in parallel and joins them
// before the next packet.
func WithConcurrentHandlers(on bool) DispatcherOption {
	return func(d *Dispatcher) { d.concurrent = on }
}

// WithMetrics records per-type packet counts.
func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher constructs a Dispatcher over registry.
func NewDispatcher(registry *Registry, log *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{registry: registry, log: log}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch decodes one packet and invokes the matching handlers.
//
// Blank packets are ignored. An error packet is delivered to the error handlers
// and then returned as *ServerError. A notification packet whose payload does
// not fit its typed shape is logged and skipped; only fragment and error
// packets abort the stream with ErrDecode.
func (d *Dispatcher) Dispatch(ctx context.Context, packet string) error {
	env, err := v1.Decode(packet)
	if err != nil {
		if errors.Is(err, v1.ErrEmptyPacket) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	d.metrics.ObservePacket(metricType(env.Type))
	h := d.registry.Load()

	switch env.Type {
	case v1.TypeFragment:
		var f v1.Fragment
		if err := env.Unmarshal(&f); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		f = f.Unescape()
		return run(d.concurrent, h.Fragment, func(fn FragmentHandler) { fn(ctx, f) })

	case v1.TypeError:
		var p v1.ErrorPacket
		if err := env.Unmarshal(&p); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		d.log.Warn("stream.packet.error", "error", p.Error, "message", p.Message)
		if err := d.Report(ctx, p.Error); err != nil {
			return err
		}
		return &ServerError{Message: p.Error}

	case v1.TypeLLMStats:
		return nil

	case v1.TypeUseCaseNotification:
		return d.useCaseNotification(ctx, env, h)

	case v1.TypeStreamedRef:
		var p v1.StreamedReference
		if err := env.Unmarshal(&p); err != nil {
			d.skip(env, err)
			return nil
		}
		return run(d.concurrent, h.StreamedRef, func(fn StreamedRefHandler) { fn(ctx, p) })

	case v1.TypeDebug:
		var p v1.Debug
		if err := env.Unmarshal(&p); err != nil {
			d.skip(env, err)
			return nil
		}
		return run(d.concurrent, h.Debug, func(fn DebugHandler) { fn(ctx, p) })

	default:
		d.log.Warn("stream.packet.unknown", "type", env.Type, "packet", packet)
		return nil
	}
}

// Report delivers message to every error handler.
func (d *Dispatcher) Report(ctx context.Context, message string) error {
	d.metrics.ObserveReportedError()
	h := d.registry.Load()
	return run(d.concurrent, h.Error, func(fn ErrorHandler) { fn(ctx, message) })
}

func (d *Dispatcher) useCaseNotification(ctx context.Context, env v1.Envelope, h *Handlers) error {
	if env.Name == v1.NotificationActiveNodeChange {
		var p v1.ActiveNodeChange
		if err := env.Unmarshal(&p); err != nil {
			d.skip(env, err)
			return nil
		}
		return run(d.concurrent, h.ActiveNodeChange, func(fn ActiveNodeChangeHandler) { fn(ctx, p) })
	}

	var p v1.UseCaseNotification
	if err := env.Unmarshal(&p); err != nil {
		// Handlers still get the name and the raw packet.
		d.log.Debug("stream.packet.payload_opaque", "type", env.Type, "name", env.Name, "err", err)
		p = v1.UseCaseNotification{Type: env.Type, Name: env.Name}
	}
	p.Raw = env.Raw
	return run(d.concurrent, h.UseCase, func(fn UseCaseHandler) { fn(ctx, p) })
}

// skip logs an optional packet whose payload does not match its typed shape.
// The stream carries on with the next packet.
func (d *Dispatcher) skip(env v1.Envelope, err error) {
	d.log.Warn("stream.packet.skipped", "type", env.Type, "name", env.Name, "err", err)
}

// metricType bounds the packet metric's label values to the known type tags.
func metricType(t string) string {
	switch t {
	case v1.TypeFragment, v1.TypeError, v1.TypeLLMStats,
		v1.TypeUseCaseNotification, v1.TypeStreamedRef, v1.TypeDebug:
		return t
	default:
		return "unknown"
	}
}

// run invokes call for every handler and returns once all of them have finished.
func run[H any](concurrent bool, handlers []H, call func(H)) error {
	if !concurrent || len(handlers) < 2 {
		for _, h := range handlers {
			call(h)
		}
		return nil
	}

	var g errgroup.Group
	for _, h := range handlers {
		h := h
		g.Go(func() error {
			call(h)
			return nil
		})
	}
	return g.Wait()
}
