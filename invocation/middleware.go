package invocation

import (
	"context"
	"time"
)

// Tap returns an inflector that calls fn(ctx, req) then runs inner with the
// request unchanged. Use for logging, metrics, or side effects.
func Tap[Q, S any](inner Inflector[Q, S], fn func(context.Context, Q)) Inflector[Q, S] {
	return func(ctx context.Context, req Q) (S, error) {
		fn(ctx, req)
		return inner(ctx, req)
	}
}

// WithTimeout wraps inner so it runs with a context deadline of now+timeout.
// This bounds the inflector's own execution; it is unrelated to the suspend
// deadline, which outlives the inflector call.
func WithTimeout[Q, S any](inner Inflector[Q, S], timeout time.Duration) Inflector[Q, S] {
	return func(ctx context.Context, req Q) (S, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return inner(ctx, req)
	}
}

// Chain composes two inflectors: first maps the request to an intermediate
// value, second maps that value to the response. Either failure
// short-circuits.
func Chain[Q, M, S any](first Inflector[Q, M], second Inflector[M, S]) Inflector[Q, S] {
	return func(ctx context.Context, req Q) (S, error) {
		m, err := first(ctx, req)
		if err != nil {
			var zero S
			return zero, err
		}
		return second(ctx, m)
	}
}
