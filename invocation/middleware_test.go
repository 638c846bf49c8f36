package invocation

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTap_RunsSideEffectFirst(t *testing.T) {
	var order []string
	inner := func(ctx context.Context, req string) (string, error) {
		order = append(order, "inner")
		return req + "!", nil
	}
	tapped := Tap(inner, func(_ context.Context, req string) {
		order = append(order, "tap:"+req)
	})

	v, err := tapped(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}
	if v != "hi!" {
		t.Errorf("value: got %q", v)
	}
	if len(order) != 2 || order[0] != "tap:hi" || order[1] != "inner" {
		t.Errorf("order: got %v", order)
	}
}

func TestWithTimeout_DeadlinePropagated(t *testing.T) {
	inner := func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	wrapped := WithTimeout(inner, 10*time.Millisecond)

	_, err := wrapped(context.Background(), "req")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err: got %v, want deadline exceeded", err)
	}
}

func TestChain(t *testing.T) {
	parse := func(_ context.Context, s string) (int, error) {
		if s == "" {
			return 0, errors.New("empty")
		}
		return len(s), nil
	}
	double := func(_ context.Context, n int) (int, error) { return n * 2, nil }
	chained := Chain(parse, double)

	v, err := chained(context.Background(), "abc")
	if err != nil {
		t.Fatal(err)
	}
	if v != 6 {
		t.Errorf("value: got %d, want 6", v)
	}

	if _, err := chained(context.Background(), ""); err == nil {
		t.Error("first inflector's failure should short-circuit")
	}
}

func TestMultiCallback_FansOut(t *testing.T) {
	a := &countingCallback{}
	b := &countingCallback{}
	cb := MultiCallback(a, b)

	cb.Suspended(Never, nil)
	cb.Resumed()
	cb.Resumed()
	cb.Cancelled()

	for i, c := range []*countingCallback{a, b} {
		s, r, x := c.counts()
		if s != 1 || r != 2 || x != 1 {
			t.Errorf("callback %d: got suspends=%d resumes=%d cancels=%d", i, s, r, x)
		}
	}
}

func TestCallbackFuncs_NilFieldsAreNoOps(t *testing.T) {
	var cb CallbackFuncs
	// Must not panic.
	cb.Suspended(Never, nil)
	cb.Resumed()
	cb.Cancelled()
}
