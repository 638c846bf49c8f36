// Package httpadapter serves HTTP requests through a dispatch.Dispatcher.
// Handler decodes the request body, dispatches it, and writes the response
// when the result future completes — which may be long after the inflector
// returned, if the invocation suspended and was resumed out-of-band (e.g. by
// ResumeHandler or a queue consumer).
package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/carlavmott/jersey/dispatch"
	"github.com/carlavmott/jersey/invocation"
)

// InvocationIDHeader carries the invocation id on every response, so callers
// can correlate suspended requests with out-of-band resume calls.
const InvocationIDHeader = "X-Invocation-Id"

// Handler serves requests through Dispatcher. The body is decoded from JSON
// into Q (an empty body yields the zero value); the completed future's value
// is encoded back as JSON.
type Handler[Q, S any] struct {
	Dispatcher *dispatch.Dispatcher[Q, S]

	// AwaitTimeout bounds how long a request waits for a suspended
	// invocation to complete. Zero means wait until the invocation
	// completes or the client goes away.
	AwaitTimeout time.Duration
}

// ServeHTTP implements http.Handler.
func (h *Handler[Q, S]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Q
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "bad request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	future, id := h.Dispatcher.Dispatch(r.Context(), req)
	w.Header().Set(InvocationIDHeader, id)

	ctx := r.Context()
	if h.AwaitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.AwaitTimeout)
		defer cancel()
	}

	resp, err := future.Await(ctx)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		// Status and headers are already out; an encode error here can
		// only mean the client went away.
		_ = json.NewEncoder(w).Encode(resp)
	case invocation.IsCancelled(err):
		http.Error(w, "invocation cancelled", http.StatusServiceUnavailable)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		http.Error(w, "timed out waiting for result", http.StatusGatewayTimeout)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ResumeHandler returns an http.Handler that completes suspended invocations:
// POST with ?id=<invocation id> and a JSON body resumes the invocation with
// the decoded value. Responds 204 on success, 404 for an unknown id, and 409
// when the invocation is already terminal.
func ResumeHandler[Q, S any](d *dispatch.Dispatcher[Q, S]) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}
		var v any
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "bad request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		switch err := d.Resume(id, v); {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, dispatch.ErrUnknownInvocation):
			http.Error(w, err.Error(), http.StatusNotFound)
		case invocation.IsStateConflict(err):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
