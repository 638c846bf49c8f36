// Package invocation provides a suspend/resume coordination primitive for
// request processing that may complete synchronously or asynchronously. An
// Adapter wraps one unit of work (an Inflector: request in, response out),
// runs it once on the calling goroutine, and exposes both a future-like
// handle for the eventual result (Future) and an imperative control surface
// (suspend, resume, cancel) usable by the work itself or by any external
// actor holding the Handle.
//
// The adapter is a small finite-state machine: running → suspended → resumed
// or cancelled, with running → resumed/cancelled as the synchronous paths.
// Exactly one of {synchronous return, external resume, cancellation}
// completes the result future, no matter how many goroutines race the
// transitions. Resumed and cancelled are terminal.
//
// A typical flow:
//
//	adapter := invocation.NewAdapter(handleOrder, callbacks)
//	future := adapter.Invoke(ctx, order)
//	// handleOrder called invocation.FromContext(ctx) and suspended, so the
//	// future is still pending; some other actor finishes it later:
//	adapter.Resume(receipt) // or adapter.ResumeError(err), adapter.Cancel()
//	result, err := future.Await(ctx)
//
// The Callback supplied at construction is notified of suspend, resume, and
// cancel transitions so the owning pipeline can release a worker, arm a
// deadline timer, or requeue the request. Hooks always run outside the
// adapter's transition lock and may call back into the handle. The adapter
// stores a configured suspend timeout but does not enforce it; deadline
// enforcement belongs to the pipeline (see the dispatch package).
//
// Treat state-conflict errors (resuming a terminal context, suspending a
// suspended one) as programming errors: they are returned synchronously and
// never retried. Failures from the inflector itself are data: they travel
// through the future like any explicitly resumed failure.
package invocation
