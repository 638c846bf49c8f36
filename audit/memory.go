package audit

import (
	"context"
	"sync"
	"time"

	"github.com/carlavmott/jersey/dispatch"
)

// Event is one recorded lifecycle transition.
type Event struct {
	ID      string
	Kind    string // "started" | "suspended" | "resumed" | "cancelled"
	Request any
	Result  any
	Err     error
	Timeout time.Duration
	At      time.Time
}

// MemoryRecorder collects lifecycle events in memory. For tests and demos;
// use DBRecorder for anything that must survive a restart.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryRecorder returns an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Ensure MemoryRecorder implements dispatch.Recorder.
var _ dispatch.Recorder = (*MemoryRecorder)(nil)

// Events returns a copy of the recorded events in arrival order.
func (m *MemoryRecorder) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MemoryRecorder) append(e Event) {
	e.At = time.Now()
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()
}

// InvocationStarted implements dispatch.Recorder.
func (m *MemoryRecorder) InvocationStarted(_ context.Context, id string, req any) error {
	m.append(Event{ID: id, Kind: "started", Request: req})
	return nil
}

// InvocationSuspended implements dispatch.Recorder.
func (m *MemoryRecorder) InvocationSuspended(_ context.Context, id string, timeout time.Duration) error {
	m.append(Event{ID: id, Kind: "suspended", Timeout: timeout})
	return nil
}

// InvocationResumed implements dispatch.Recorder.
func (m *MemoryRecorder) InvocationResumed(_ context.Context, id string, result any, err error) error {
	m.append(Event{ID: id, Kind: "resumed", Result: result, Err: err})
	return nil
}

// InvocationCancelled implements dispatch.Recorder.
func (m *MemoryRecorder) InvocationCancelled(_ context.Context, id string) error {
	m.append(Event{ID: id, Kind: "cancelled"})
	return nil
}
