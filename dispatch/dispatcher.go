package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/carlavmott/jersey/invocation"
)

// TimeoutPolicy selects what happens when a suspended invocation's deadline
// elapses.
type TimeoutPolicy int

const (
	// RespondOnTimeout resumes the invocation with its fallback response
	// (see Handle.SetResponse) when the deadline elapses, cancelling only
	// if no fallback was set.
	RespondOnTimeout TimeoutPolicy = iota
	// CancelOnTimeout always cancels on deadline, ignoring any fallback.
	CancelOnTimeout
)

// Recorder receives invocation lifecycle events, e.g. for DB persistence or
// monitoring. Recorder errors are logged by the dispatcher and never fail the
// invocation.
type Recorder interface {
	InvocationStarted(ctx context.Context, id string, req any) error
	InvocationSuspended(ctx context.Context, id string, timeout time.Duration) error
	InvocationResumed(ctx context.Context, id string, result any, err error) error
	InvocationCancelled(ctx context.Context, id string) error
}

// ErrUnknownInvocation is returned by Resume, ResumeError, and Cancel when no
// suspended invocation with the given id is tracked (it may have already
// completed, or never existed).
var ErrUnknownInvocation = errors.New("unknown invocation id")

// Options configures a Dispatcher. The zero value (or nil) is usable: no
// deadline by default, respond-on-timeout policy, no recorder, no extra
// callback.
type Options[Q, S any] struct {
	// DefaultTimeout is applied to contexts that suspend without an
	// explicit duration. invocation.Never (zero) means suspended
	// invocations wait indefinitely for an external resume or cancel.
	DefaultTimeout time.Duration

	// Policy decides between fallback-response delivery and cancellation
	// when a suspend deadline elapses.
	Policy TimeoutPolicy

	// Recorder, if set, is notified of started/suspended/resumed/cancelled
	// events for every dispatched invocation.
	Recorder Recorder

	// Callback, if set, receives the same lifecycle hooks as the
	// dispatcher's internal bookkeeping, invoked after it.
	Callback invocation.Callback

	// Converter replaces the default resume-value converter on every
	// adapter the dispatcher creates.
	Converter invocation.Converter[Q, S]

	// Logger is used for diagnostics. Defaults to a discarding logger.
	Logger logr.Logger
}

// Dispatcher creates and owns invocation contexts for one inflector. It is
// the "owning pipeline" side of the invocation package: per dispatch it
// generates an id, wires its own callback to track suspended invocations and
// arm deadline timers, and feeds lifecycle events to the recorder. Suspended
// invocations can be resumed or cancelled out-of-band by id.
type Dispatcher[Q, S any] struct {
	inflector invocation.Inflector[Q, S]

	defaultTimeout time.Duration
	policy         TimeoutPolicy
	recorder       Recorder
	userCallback   invocation.Callback
	converter      invocation.Converter[Q, S]
	logger         logr.Logger

	mu   sync.Mutex
	live map[string]invocation.Handle
}

// New returns a dispatcher around the given inflector. opts may be nil.
func New[Q, S any](inflector invocation.Inflector[Q, S], opts *Options[Q, S]) *Dispatcher[Q, S] {
	d := &Dispatcher[Q, S]{
		inflector: inflector,
		logger:    logr.Discard(),
		live:      make(map[string]invocation.Handle),
	}
	if opts != nil {
		d.defaultTimeout = opts.DefaultTimeout
		d.policy = opts.Policy
		d.recorder = opts.Recorder
		d.userCallback = opts.Callback
		d.converter = opts.Converter
		if opts.Logger.GetSink() != nil {
			d.logger = opts.Logger
		}
	}
	return d
}

// Dispatch runs req through the inflector on the calling goroutine and
// returns the result future together with the invocation id. Dispatch returns
// as soon as the inflector call returns; if the invocation suspended, the
// future completes later via an external resume, a cancellation, or the
// armed deadline.
func (d *Dispatcher[Q, S]) Dispatch(ctx context.Context, req Q) (*invocation.Future[S], string) {
	id := uuid.NewString()
	d.record(id, func() error { return d.recorder.InvocationStarted(ctx, id, req) })

	cb := &dispatchCallback[Q, S]{d: d, id: id, ctx: ctx}
	adapterOpts := []invocation.Option[Q, S]{
		invocation.WithDefaultTimeout[Q, S](d.defaultTimeout),
		invocation.WithLogger[Q, S](d.logger.WithValues("invocation", id)),
	}
	if d.converter != nil {
		adapterOpts = append(adapterOpts, invocation.WithConverter(d.converter))
	}
	adapter := invocation.NewAdapter(d.inflector, cb, adapterOpts...)

	future := adapter.Invoke(ctx, req)
	future.Listen(func() {
		if future.IsCancelled() {
			return // recorded by the Cancelled hook
		}
		result, err, _ := future.Outcome()
		d.record(id, func() error { return d.recorder.InvocationResumed(ctx, id, result, err) })
	})
	return future, id
}

// Lookup returns the handle of a currently suspended invocation, or nil if
// the id is unknown or the invocation already completed.
func (d *Dispatcher[Q, S]) Lookup(id string) invocation.Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live[id]
}

// Suspended returns the ids of currently suspended invocations (unordered).
func (d *Dispatcher[Q, S]) Suspended() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.live))
	for id := range d.live {
		ids = append(ids, id)
	}
	return ids
}

// Resume completes the suspended invocation id with a value.
func (d *Dispatcher[Q, S]) Resume(id string, v any) error {
	h := d.Lookup(id)
	if h == nil {
		return ErrUnknownInvocation
	}
	return h.Resume(v)
}

// ResumeError completes the suspended invocation id with a failure.
func (d *Dispatcher[Q, S]) ResumeError(id string, err error) error {
	h := d.Lookup(id)
	if h == nil {
		return ErrUnknownInvocation
	}
	return h.ResumeError(err)
}

// Cancel aborts the suspended invocation id.
func (d *Dispatcher[Q, S]) Cancel(id string) error {
	h := d.Lookup(id)
	if h == nil {
		return ErrUnknownInvocation
	}
	h.Cancel()
	return nil
}

func (d *Dispatcher[Q, S]) track(id string, h invocation.Handle) {
	d.mu.Lock()
	d.live[id] = h
	d.mu.Unlock()
}

func (d *Dispatcher[Q, S]) untrack(id string) {
	d.mu.Lock()
	delete(d.live, id)
	d.mu.Unlock()
}

// record runs a recorder call, logging (not propagating) its error.
func (d *Dispatcher[Q, S]) record(id string, call func() error) {
	if d.recorder == nil {
		return
	}
	if err := call(); err != nil {
		d.logger.Error(err, "invocation recorder failed", "invocation", id)
	}
}

// deadline fires when a suspended invocation's timer elapses. Under
// RespondOnTimeout the fallback response, if any, completes the invocation;
// otherwise the invocation is cancelled. A resume that won the race is
// tolerated silently.
func (d *Dispatcher[Q, S]) deadline(id string, h invocation.Handle) {
	if d.policy == RespondOnTimeout {
		if fallback := h.Response(); fallback != nil {
			err := h.Resume(fallback)
			if err != nil && !invocation.IsStateConflict(err) {
				d.logger.Error(err, "deadline resume failed", "invocation", id)
			}
			return
		}
	}
	// Cancel is a silent no-op if the invocation turned terminal meanwhile.
	h.Cancel()
}

// dispatchCallback is the dispatcher's per-invocation callback: it keeps the
// live table current, arms/disarms the deadline timer, records suspend and
// cancel events, and forwards every hook to the user callback afterwards.
type dispatchCallback[Q, S any] struct {
	d   *Dispatcher[Q, S]
	id  string
	ctx context.Context

	mu    sync.Mutex
	timer *time.Timer
}

func (c *dispatchCallback[Q, S]) Suspended(timeout time.Duration, h invocation.Handle) {
	c.d.track(c.id, h)
	c.d.record(c.id, func() error { return c.d.recorder.InvocationSuspended(c.ctx, c.id, timeout) })
	if timeout != invocation.Never {
		c.mu.Lock()
		c.timer = time.AfterFunc(timeout, func() { c.d.deadline(c.id, h) })
		c.mu.Unlock()
	}
	if c.d.userCallback != nil {
		c.d.userCallback.Suspended(timeout, h)
	}
}

func (c *dispatchCallback[Q, S]) Resumed() {
	c.disarm()
	c.d.untrack(c.id)
	if c.d.userCallback != nil {
		c.d.userCallback.Resumed()
	}
}

func (c *dispatchCallback[Q, S]) Cancelled() {
	c.disarm()
	c.d.untrack(c.id)
	c.d.record(c.id, func() error { return c.d.recorder.InvocationCancelled(c.ctx, c.id) })
	if c.d.userCallback != nil {
		c.d.userCallback.Cancelled()
	}
}

func (c *dispatchCallback[Q, S]) disarm() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
}
