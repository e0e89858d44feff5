package deadline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrTimeout is the cancellation cause recorded when a Timer fires.
var ErrTimeout = errors.New("deadline exceeded")

// Timer is a one-shot cancellation deadline.
type Timer struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	t      *time.Timer

	fired atomic.Bool
	once  sync.Once
}

// New arms a Timer that cancels its context after d.
// A non-positive d fires immediately.
func New(parent context.Context, d time.Duration) *Timer {
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithCancelCause(parent)
	tm := &Timer{ctx: ctx, cancel: cancel}

	tm.t = time.AfterFunc(d, func() {
		tm.fired.Store(true)
		cancel(ErrTimeout)
	})

	return tm
}

// Context returns the context to pass to the bounded call.
func (t *Timer) Context() context.Context { return t.ctx }

// Fired reports whether the deadline elapsed before Reset.
func (t *Timer) Fired() bool { return t.fired.Load() }

// Reset stops the timer so it can no longer fire and releases the context.
// It is safe to call more than once.
func (t *Timer) Reset() {
	t.once.Do(func() {
		t.t.Stop()
		t.cancel(context.Canceled)
	})
}

// Cause returns ErrTimeout if the timer fired, the parent's cause if the parent
// was cancelled first, and nil while the call is still in flight.
func (t *Timer) Cause() error {
	if t.fired.Load() {
		return ErrTimeout
	}
	if err := t.ctx.Err(); err != nil {
		if cause := context.Cause(t.ctx); !errors.Is(cause, context.Canceled) {
			return cause
		}
		return err
	}
	return nil
}
