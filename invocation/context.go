package invocation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// Inflector is the wrapped unit of work: it maps a request to a response or
// fails. It runs once, synchronously, on the goroutine that calls Invoke.
// An inflector that wants to defer its result retrieves the invocation handle
// with FromContext and suspends.
type Inflector[Q, S any] func(ctx context.Context, req Q) (S, error)

// Converter maps an externally supplied resume value to the response type.
// It is applied on the external resume path only — a value returned
// synchronously by the inflector is already of the response type and bypasses
// conversion. The originating request is available for request-aware
// conversion (e.g. content negotiation).
type Converter[Q, S any] func(req Q, v any) (S, error)

// DefaultConverter type-asserts the resume value to S. nil maps to the zero
// value; any other mismatch is an error that fails the result future.
func DefaultConverter[Q, S any]() Converter[Q, S] {
	return func(_ Q, v any) (S, error) {
		if v == nil {
			var zero S
			return zero, nil
		}
		s, ok := v.(S)
		if !ok {
			var zero S
			return zero, fmt.Errorf("resume value: expected %T, got %T", zero, v)
		}
		return s, nil
	}
}

// Adapter is the invocation context: the per-request state machine and
// suspend/resume/cancel control surface around one inflector invocation. It
// owns the result future and completes it exactly once, regardless of how
// many goroutines race suspend, resume, and cancel.
//
// All state transitions are serialized behind one per-adapter mutex; the
// notification callback is always invoked outside that lock. The fallback
// response and originating request slots are lock-free and carry no ordering
// guarantees relative to state transitions.
type Adapter[Q, S any] struct {
	mu    sync.Mutex
	state State

	// defaultTimeout guards under mu alongside state; it is mutable until
	// the context suspends.
	defaultTimeout time.Duration

	fallback atomic.Pointer[any]
	request  atomic.Pointer[Q]

	wrapped  Inflector[Q, S]
	callback Callback
	convert  Converter[Q, S]
	future   *Future[S]
	logger   logr.Logger

	// Instance id, generated only when String is called (e.g. by low-level
	// logging) to keep it off the hot path.
	idOnce sync.Once
	id     string
}

// Option configures an adapter at construction time.
type Option[Q, S any] func(*Adapter[Q, S])

// WithConverter replaces the default resume-value converter.
func WithConverter[Q, S any](c Converter[Q, S]) Option[Q, S] {
	return func(a *Adapter[Q, S]) { a.convert = c }
}

// WithLogger sets the logger used for diagnostic (V(1)) notes. The default
// discards everything.
func WithLogger[Q, S any](logger logr.Logger) Option[Q, S] {
	return func(a *Adapter[Q, S]) { a.logger = logger }
}

// WithDefaultTimeout sets the initial default suspend timeout (normally
// Never).
func WithDefaultTimeout[Q, S any](d time.Duration) Option[Q, S] {
	return func(a *Adapter[Q, S]) { a.defaultTimeout = d }
}

// NewAdapter returns an invocation context around the wrapped inflector. A
// nil callback is replaced with NopCallback.
func NewAdapter[Q, S any](wrapped Inflector[Q, S], callback Callback, opts ...Option[Q, S]) *Adapter[Q, S] {
	a := &Adapter[Q, S]{
		state:          Running,
		defaultTimeout: Never,
		wrapped:        wrapped,
		callback:       callback,
		logger:         logr.Discard(),
	}
	if a.callback == nil {
		a.callback = NopCallback{}
	}
	a.convert = DefaultConverter[Q, S]()
	for _, opt := range opts {
		opt(a)
	}
	a.future = newFuture[S](a.logger)
	a.future.onCancel = a.Cancel
	return a
}

// Adapter implements Handle.
var _ Handle = (*Adapter[any, any])(nil)

type handleKey struct{}

// FromContext returns the invocation handle injected by Invoke, so the
// wrapped inflector (or anything it calls) can suspend, resume, or cancel its
// own invocation.
func FromContext(ctx context.Context) (Handle, bool) {
	h, ok := ctx.Value(handleKey{}).(Handle)
	return h, ok
}

// Invoke stores req as the originating request and runs the wrapped inflector
// synchronously on the calling goroutine, then returns the result future.
//
// If the inflector returns a value while the context is still running, the
// Running→Resumed transition and the future completion happen without
// invoking the resume hook (no external resume occurred). If the context was
// suspended during the call, the returned value is discarded with a
// diagnostic note. An inflector failure (returned error or panic) is routed
// through the resume path; a failure arriving after another actor already
// resumed or cancelled the context is swallowed, never re-raised to the
// invoker.
func (a *Adapter[Q, S]) Invoke(ctx context.Context, req Q) *Future[S] {
	a.request.Store(&req)
	a.run(context.WithValue(ctx, handleKey{}, Handle(a)), req)
	return a.future
}

func (a *Adapter[Q, S]) run(ctx context.Context, req Q) {
	defer func() {
		if p := recover(); p != nil {
			a.resumeFailure(&PanicError{Value: p})
		}
	}()

	resp, err := a.wrapped(ctx, req)
	if err != nil {
		a.resumeFailure(err)
		return
	}

	a.mu.Lock()
	if a.state == Running {
		// Not suspended during the inflector call: mark resumed and
		// complete synchronously. The state is recorded before the future
		// is set so a concurrent resume attempt is rejected, and the
		// future is completed outside the lock so its listeners can call
		// back into the handle.
		a.state = Resumed
		a.mu.Unlock()
		a.future.complete(resp)
		return
	}
	st := a.state
	a.mu.Unlock()
	a.logger.V(1).Info("invocation no longer running; synchronous result discarded", "state", st.String())
}

// resumeFailure delivers an inflector failure through the resume path,
// swallowing a state conflict from a context that was already resumed or
// cancelled by another actor.
func (a *Adapter[Q, S]) resumeFailure(err error) {
	if rerr := a.ResumeError(err); rerr != nil {
		a.logger.V(1).Info("inflector failure after terminal transition; discarded",
			"failure", err.Error(), "state", a.State().String())
	}
}

// Resume implements Handle. The value is converted with the adapter's
// converter; a conversion failure completes the future with that failure so
// waiters are never left blocked.
func (a *Adapter[Q, S]) Resume(v any) error {
	return a.resume(func() {
		var req Q
		if p := a.request.Load(); p != nil {
			req = *p
		}
		s, err := a.convert(req, v)
		if err != nil {
			a.future.fail(fmt.Errorf("convert resume value: %w", err))
			return
		}
		a.future.complete(s)
	})
}

// ResumeError implements Handle.
func (a *Adapter[Q, S]) ResumeError(err error) error {
	return a.resume(func() { a.future.fail(err) })
}

// resume performs the transition to Resumed and then delivers the outcome.
// The state is switched under the lock before delivery, which guarantees a
// concurrent second resume attempt observes Resumed and is rejected. The
// resume hook, when the prior state was Suspended, fires after the future has
// completed so the pipeline's bookkeeping runs once the value is externally
// visible. A panic during delivery is swallowed into the future instead of
// propagating, trading failure fidelity for the liveness of waiters.
func (a *Adapter[Q, S]) resume(deliver func()) error {
	a.mu.Lock()
	if a.state != Running && a.state != Suspended {
		st := a.state
		a.mu.Unlock()
		return &StateConflictError{Op: "resume", State: st}
	}
	wasSuspended := a.state == Suspended
	a.state = Resumed
	a.mu.Unlock()

	if wasSuspended {
		defer a.callback.Resumed()
	}
	defer func() {
		if p := recover(); p != nil {
			a.logger.V(1).Info("panic while delivering resume outcome; swallowed", "panic", p)
			a.future.fail(&PanicError{Value: p})
		}
	}()
	deliver()
	return nil
}

// TrySuspend implements Handle.
func (a *Adapter[Q, S]) TrySuspend() bool {
	ok, _ := a.suspend(a.suspendTimeout(), false)
	return ok
}

// Suspend implements Handle.
func (a *Adapter[Q, S]) Suspend() error {
	_, err := a.suspend(a.suspendTimeout(), true)
	return err
}

// SuspendFor implements Handle.
func (a *Adapter[Q, S]) SuspendFor(d time.Duration) error {
	_, err := a.suspend(d, true)
	return err
}

func (a *Adapter[Q, S]) suspend(timeout time.Duration, failOnConflict bool) (bool, error) {
	var suspended bool
	a.mu.Lock()
	st := a.state
	switch st {
	case Resumed:
		// Already resumed: ignore the suspend request.
	case Suspended, Cancelled:
		if failOnConflict {
			a.mu.Unlock()
			return false, &StateConflictError{Op: "suspend", State: st}
		}
	case Running:
		a.state = Suspended
		suspended = true
	}
	a.mu.Unlock()

	// Callback and diagnostics stay outside the critical section so the
	// suspend hook can call back into resume/cancel without deadlocking.
	if suspended {
		a.callback.Suspended(timeout, a)
	} else {
		a.logger.V(1).Info("suspend ignored", "state", st.String())
	}
	return suspended, nil
}

// Cancel implements Handle. Cancellation is cooperative: the inflector is not
// preempted; the cancellation hook lets the pipeline interrupt its worker.
func (a *Adapter[Q, S]) Cancel() {
	a.mu.Lock()
	if a.state != Running && a.state != Suspended {
		st := a.state
		a.mu.Unlock()
		a.logger.V(1).Info("cancel ignored", "state", st.String())
		return
	}
	a.state = Cancelled
	a.mu.Unlock()

	a.future.markCancelled()
	a.callback.Cancelled()
}

// State implements Handle.
func (a *Adapter[Q, S]) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// IsSuspended implements Handle.
func (a *Adapter[Q, S]) IsSuspended() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state == Suspended
}

// SetSuspendTimeout implements Handle.
func (a *Adapter[Q, S]) SetSuspendTimeout(d time.Duration) {
	a.mu.Lock()
	a.defaultTimeout = d
	a.mu.Unlock()
}

func (a *Adapter[Q, S]) suspendTimeout() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.defaultTimeout
}

// SetResponse implements Handle. The slot is independent of the state machine:
// last write wins, with no ordering guarantees relative to transitions.
func (a *Adapter[Q, S]) SetResponse(v any) {
	a.fallback.Store(&v)
}

// Response implements Handle.
func (a *Adapter[Q, S]) Response() any {
	p := a.fallback.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Request returns the originating request stored by Invoke, and false if
// Invoke has not run yet.
func (a *Adapter[Q, S]) Request() (Q, bool) {
	p := a.request.Load()
	if p == nil {
		var zero Q
		return zero, false
	}
	return *p, true
}

// Future returns the result future. The same future is returned by Invoke.
func (a *Adapter[Q, S]) Future() *Future[S] { return a.future }

// String materializes the instance id on first use and returns a diagnostic
// representation.
func (a *Adapter[Q, S]) String() string {
	a.idOnce.Do(func() { a.id = uuid.NewString() })
	return fmt.Sprintf("invocation{id=%s, state=%s}", a.id, a.State())
}
