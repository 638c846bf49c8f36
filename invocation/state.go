package invocation

import "time"

// State is the lifecycle state of an invocation context. The initial state is
// Running; Resumed and Cancelled are terminal. Legal transitions are
// Running→Suspended, Running→Resumed, Running→Cancelled, Suspended→Resumed,
// and Suspended→Cancelled.
type State int

const (
	// Running: the wrapped inflector has been (or is being) invoked and
	// nothing has suspended, resumed, or cancelled the context yet.
	Running State = iota
	// Suspended: completion is deferred until an external resume, a
	// cancellation, or a deadline arranged by the owning pipeline.
	Suspended
	// Resumed: the result future has been (or is about to be) completed
	// with a value or failure. Terminal.
	Resumed
	// Cancelled: processing was aborted; the result future reports
	// cancellation. Terminal.
	Cancelled
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	case Resumed:
		return "resumed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Never disables the suspend deadline: a context suspended with Never stays
// suspended until it is explicitly resumed or cancelled. It is the initial
// default timeout of every adapter.
const Never time.Duration = 0
