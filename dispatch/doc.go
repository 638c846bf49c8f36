// Package dispatch is the owning-pipeline side of the invocation package: a
// Dispatcher creates one invocation context per request, tracks suspended
// invocations by id, and enforces suspend deadlines with per-invocation
// timers (the core itself only stores the configured timeout).
//
// On deadline the dispatcher either resumes the invocation with its fallback
// response or cancels it, depending on the configured TimeoutPolicy. An
// optional Recorder receives lifecycle events (started, suspended, resumed,
// cancelled) for persistence or monitoring — see the audit package for a
// Postgres-backed implementation.
//
// Out-of-band actors (HTTP callbacks, queue consumers, timers) complete
// suspended invocations through the dispatcher:
//
//	future, id := d.Dispatch(ctx, req) // inflector suspended itself
//	...
//	err := d.Resume(id, result)        // elsewhere, later
package dispatch
