package invocation

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// Future is the single-assignment completion cell for one invocation. It is
// completed exactly once by its owning adapter's terminal transition (value,
// failure, or cancellation); every later assignment attempt is a no-op.
//
// The handle may be shared with any number of observers. Observers may await
// or query the outcome and register listeners; the only mutation they can
// request is Cancel, which is reflected back to the owning invocation context
// so the pipeline's cancellation hook fires.
type Future[S any] struct {
	mu        sync.Mutex
	done      chan struct{}
	value     S
	err       error
	completed bool
	cancelled bool
	listeners []func()

	// onCancel forwards observer-requested cancellation to the owning
	// adapter. Set once at construction, before the future is shared.
	onCancel func()
	logger   logr.Logger
}

func newFuture[S any](logger logr.Logger) *Future[S] {
	return &Future[S]{done: make(chan struct{}), logger: logger}
}

// complete assigns the success value. The first assignment wins; later calls
// (complete, fail, or markCancelled) are no-ops.
func (f *Future[S]) complete(v S) bool {
	return f.finish(func() { f.value = v })
}

// fail assigns the failure. Same single-assignment contract as complete.
func (f *Future[S]) fail(err error) bool {
	return f.finish(func() { f.err = err })
}

// markCancelled completes the future with ErrCancelled and flags it as
// cancelled. Used by the adapter's cancel transition.
func (f *Future[S]) markCancelled() bool {
	return f.finish(func() {
		f.err = ErrCancelled
		f.cancelled = true
	})
}

// finish records the outcome under the lock, closes the done channel, then
// notifies listeners outside the lock. Listener panics are swallowed (logged
// only) so a misbehaving observer cannot leave other waiters blocked.
func (f *Future[S]) finish(assign func()) bool {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return false
	}
	assign()
	f.completed = true
	listeners := f.listeners
	f.listeners = nil
	close(f.done)
	f.mu.Unlock()

	for _, fn := range listeners {
		f.notify(fn)
	}
	return true
}

func (f *Future[S]) notify(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			f.logger.V(1).Info("future listener panicked; panic swallowed", "panic", p)
		}
	}()
	fn()
}

// Done returns a channel that is closed once the future has completed.
func (f *Future[S]) Done() <-chan struct{} { return f.done }

// IsDone reports whether the future has completed (value, failure, or
// cancellation).
func (f *Future[S]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// IsCancelled reports whether the future completed through cancellation.
func (f *Future[S]) IsCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

// Outcome returns the completed value and failure. done is false while the
// future is still pending, in which case value and err are zero.
func (f *Future[S]) Outcome() (value S, err error, done bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err, f.completed
}

// Await blocks until the future completes or ctx is done. It never busy-waits.
func (f *Future[S]) Await(ctx context.Context) (S, error) {
	select {
	case <-f.done:
		v, err, _ := f.Outcome()
		return v, err
	case <-ctx.Done():
		var zero S
		return zero, ctx.Err()
	}
}

// AwaitFor blocks until the future completes or d elapses, returning
// context.DeadlineExceeded on timeout.
func (f *Future[S]) AwaitFor(d time.Duration) (S, error) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-f.done:
		v, err, _ := f.Outcome()
		return v, err
	case <-t.C:
		var zero S
		return zero, context.DeadlineExceeded
	}
}

// Listen registers fn to run once the future completes. If the future is
// already complete, fn runs immediately on the calling goroutine; otherwise it
// runs on the goroutine that completes the future. Each listener is notified
// at most once.
func (f *Future[S]) Listen(fn func()) {
	f.mu.Lock()
	if !f.completed {
		f.listeners = append(f.listeners, fn)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	f.notify(fn)
}

// Cancel requests cancellation of the owning invocation. It is reflected back
// as the context's cancel transition, so the pipeline's cancellation hook
// fires and any in-flight worker can be interrupted. A no-op once the
// invocation is terminal.
func (f *Future[S]) Cancel() {
	if f.onCancel != nil {
		f.onCancel()
		return
	}
	f.markCancelled()
}
