package invocation

import (
	"errors"
	"fmt"
)

// ErrStateConflict is the match target for errors.Is when an operation is
// illegal in the context's current state (e.g. resuming an already-resumed
// context, or suspending a cancelled one). State conflicts are programming
// errors: they are surfaced to the caller synchronously and never retried.
var ErrStateConflict = errors.New("illegal invocation context state")

// StateConflictError reports which operation was rejected and the state the
// context was in at the time.
type StateConflictError struct {
	Op    string // "suspend" or "resume"
	State State
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s: illegal invocation context state %q", e.Op, e.State)
}

// Is makes errors.Is(err, ErrStateConflict) true for any StateConflictError.
func (e *StateConflictError) Is(target error) bool { return target == ErrStateConflict }

// IsStateConflict reports whether err is a state-conflict error.
func IsStateConflict(err error) bool { return errors.Is(err, ErrStateConflict) }

// ErrCancelled is the failure held by a result future whose invocation was
// cancelled. Callers should treat it as "processing aborted", not as a
// business-logic failure.
var ErrCancelled = errors.New("invocation cancelled")

// IsCancelled reports whether err indicates a cancelled invocation.
func IsCancelled(err error) bool { return errors.Is(err, ErrCancelled) }

// PanicError wraps a panic recovered while running the wrapped inflector or
// while delivering a resume value, so it can travel through the result future
// like any other failure.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("invocation panic: %v", e.Value) }
