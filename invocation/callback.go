package invocation

import "time"

// Handle is the control surface of an in-flight invocation context. The
// wrapped inflector receives it via FromContext; the owning pipeline receives
// it through the Callback.Suspended hook so it can later resume or cancel the
// same context.
type Handle interface {
	// Resume completes a running or suspended invocation with a value. The
	// value is passed through the adapter's converter before it reaches the
	// result future. Returns a state-conflict error from a terminal state.
	Resume(v any) error
	// ResumeError completes a running or suspended invocation with a
	// failure. Returns a state-conflict error from a terminal state.
	ResumeError(err error) error
	// TrySuspend attempts the Running→Suspended transition and reports
	// whether it happened. Never returns an error: an already-terminal or
	// already-suspended context yields false.
	TrySuspend() bool
	// Suspend performs the Running→Suspended transition with the default
	// timeout. Already-resumed contexts are silently ignored; suspending a
	// suspended or cancelled context is a state-conflict error.
	Suspend() error
	// SuspendFor is Suspend with an explicit deadline.
	SuspendFor(d time.Duration) error
	// Cancel aborts a running or suspended invocation. A silent no-op from
	// a terminal state.
	Cancel()
	// State returns the current lifecycle state, read under the same lock
	// that serializes transitions.
	State() State
	// IsSuspended reports whether the context is currently suspended.
	IsSuspended() bool
	// SetSuspendTimeout replaces the default timeout used by Suspend and
	// TrySuspend. Call it before suspending; it has no effect on a deadline
	// already armed by the pipeline.
	SetSuspendTimeout(d time.Duration)
	// SetResponse stores a fallback payload, independent of the state
	// machine. Pipelines typically deliver it when a suspend deadline
	// elapses. Last write wins.
	SetResponse(v any)
	// Response returns the fallback payload, or nil if none was set.
	Response() any
}

// Callback receives lifecycle notifications from an invocation context. It is
// supplied by the owning pipeline (e.g. to release a worker, arm a deadline
// timer, or requeue the request). Hooks are always invoked outside the
// context's transition lock, so they may call back into the handle.
type Callback interface {
	// Suspended fires once per successful suspend, with the effective
	// timeout (Never means no deadline) and a handle sufficient to later
	// resume or cancel the context.
	Suspended(timeout time.Duration, h Handle)
	// Resumed fires once per successful resume that followed an external
	// suspend. It never fires for a self-resume while still running, and it
	// fires after the result future has completed.
	Resumed()
	// Cancelled fires once per successful cancellation, so the pipeline can
	// interrupt and clean up any in-flight worker.
	Cancelled()
}

// NopCallback ignores all notifications.
type NopCallback struct{}

func (NopCallback) Suspended(time.Duration, Handle) {}
func (NopCallback) Resumed()                        {}
func (NopCallback) Cancelled()                      {}

// CallbackFuncs adapts plain functions to Callback. Nil fields are no-ops.
type CallbackFuncs struct {
	OnSuspended func(timeout time.Duration, h Handle)
	OnResumed   func()
	OnCancelled func()
}

func (c CallbackFuncs) Suspended(timeout time.Duration, h Handle) {
	if c.OnSuspended != nil {
		c.OnSuspended(timeout, h)
	}
}

func (c CallbackFuncs) Resumed() {
	if c.OnResumed != nil {
		c.OnResumed()
	}
}

func (c CallbackFuncs) Cancelled() {
	if c.OnCancelled != nil {
		c.OnCancelled()
	}
}

// MultiCallback fans each notification out to every callback in order.
func MultiCallback(callbacks ...Callback) Callback {
	return multiCallback(callbacks)
}

type multiCallback []Callback

func (m multiCallback) Suspended(timeout time.Duration, h Handle) {
	for _, c := range m {
		c.Suspended(timeout, h)
	}
}

func (m multiCallback) Resumed() {
	for _, c := range m {
		c.Resumed()
	}
}

func (m multiCallback) Cancelled() {
	for _, c := range m {
		c.Cancelled()
	}
}
