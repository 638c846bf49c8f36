package audit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRecorder_EventOrder(t *testing.T) {
	m := NewMemoryRecorder()
	ctx := context.Background()

	if err := m.InvocationStarted(ctx, "inv-1", "req"); err != nil {
		t.Fatal(err)
	}
	if err := m.InvocationSuspended(ctx, "inv-1", 30*time.Second); err != nil {
		t.Fatal(err)
	}
	if err := m.InvocationResumed(ctx, "inv-1", "result", nil); err != nil {
		t.Fatal(err)
	}

	events := m.Events()
	if len(events) != 3 {
		t.Fatalf("events: got %d, want 3", len(events))
	}
	wantKinds := []string{"started", "suspended", "resumed"}
	for i, want := range wantKinds {
		if events[i].Kind != want {
			t.Errorf("event %d: got %q, want %q", i, events[i].Kind, want)
		}
		if events[i].ID != "inv-1" {
			t.Errorf("event %d id: got %q", i, events[i].ID)
		}
	}
	if events[1].Timeout != 30*time.Second {
		t.Errorf("suspended timeout: got %v", events[1].Timeout)
	}
	if events[2].Result != "result" {
		t.Errorf("resumed result: got %v", events[2].Result)
	}
}

func TestMemoryRecorder_FailureAndCancel(t *testing.T) {
	m := NewMemoryRecorder()
	ctx := context.Background()

	boom := errors.New("boom")
	_ = m.InvocationResumed(ctx, "a", nil, boom)
	_ = m.InvocationCancelled(ctx, "b")

	events := m.Events()
	if !errors.Is(events[0].Err, boom) {
		t.Errorf("event 0 err: got %v", events[0].Err)
	}
	if events[1].Kind != "cancelled" || events[1].ID != "b" {
		t.Errorf("event 1: got %+v", events[1])
	}
}

func TestMemoryRecorder_EventsReturnsCopy(t *testing.T) {
	m := NewMemoryRecorder()
	_ = m.InvocationStarted(context.Background(), "x", nil)

	events := m.Events()
	events[0].Kind = "mutated"
	if m.Events()[0].Kind != "started" {
		t.Error("Events must return a copy")
	}
}
