package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/carlavmott/jersey/dispatch"
	"github.com/carlavmott/jersey/invocation"
)

type echoReq struct {
	Msg string `json:"msg"`
}

type echoResp struct {
	Msg string `json:"msg"`
}

// resumeWhenSuspended resumes the first suspended invocation with v.
func resumeWhenSuspended[Q, S any](t *testing.T, d *dispatch.Dispatcher[Q, S], v any) {
	t.Helper()
	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if ids := d.Suspended(); len(ids) > 0 {
				_ = d.Resume(ids[0], v)
				return
			}
			time.Sleep(2 * time.Millisecond)
		}
	}()
}

func TestHandler_Synchronous(t *testing.T) {
	d := dispatch.New(func(ctx context.Context, req echoReq) (echoResp, error) {
		return echoResp{Msg: req.Msg + "!"}, nil
	}, nil)
	h := &Handler[echoReq, echoResp]{Dispatcher: d}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/invoke", strings.NewReader(`{"msg":"hi"}`)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %q", rr.Code, rr.Body.String())
	}
	if rr.Header().Get(InvocationIDHeader) == "" {
		t.Error("missing invocation id header")
	}
	var resp echoResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Msg != "hi!" {
		t.Errorf("msg: got %q", resp.Msg)
	}
}

func TestHandler_SuspendedThenResumed(t *testing.T) {
	d := dispatch.New(func(ctx context.Context, _ echoReq) (echoResp, error) {
		h, _ := invocation.FromContext(ctx)
		return echoResp{}, h.Suspend()
	}, nil)
	h := &Handler[echoReq, echoResp]{Dispatcher: d, AwaitTimeout: 2 * time.Second}

	resumeWhenSuspended(t, d, echoResp{Msg: "late"})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/invoke", strings.NewReader(`{"msg":"park me"}`)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %q", rr.Code, rr.Body.String())
	}
	var resp echoResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Msg != "late" {
		t.Errorf("msg: got %q, want late", resp.Msg)
	}
}

func TestHandler_Cancelled(t *testing.T) {
	d := dispatch.New(func(ctx context.Context, _ echoReq) (echoResp, error) {
		h, _ := invocation.FromContext(ctx)
		return echoResp{}, h.Suspend()
	}, nil)
	h := &Handler[echoReq, echoResp]{Dispatcher: d, AwaitTimeout: 2 * time.Second}

	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if ids := d.Suspended(); len(ids) > 0 {
				_ = d.Cancel(ids[0])
				return
			}
			time.Sleep(2 * time.Millisecond)
		}
	}()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/invoke", strings.NewReader(`{}`)))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", rr.Code)
	}
}

func TestHandler_AwaitTimeout(t *testing.T) {
	d := dispatch.New(func(ctx context.Context, _ echoReq) (echoResp, error) {
		h, _ := invocation.FromContext(ctx)
		return echoResp{}, h.Suspend()
	}, nil)
	h := &Handler[echoReq, echoResp]{Dispatcher: d, AwaitTimeout: 20 * time.Millisecond}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/invoke", strings.NewReader(`{}`)))
	if rr.Code != http.StatusGatewayTimeout {
		t.Errorf("status: got %d, want 504", rr.Code)
	}
}

func TestHandler_BadBody(t *testing.T) {
	d := dispatch.New(func(ctx context.Context, req echoReq) (echoResp, error) {
		return echoResp(req), nil
	}, nil)
	h := &Handler[echoReq, echoResp]{Dispatcher: d}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/invoke", strings.NewReader(`{not json`)))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestHandler_EmptyBodyIsZeroRequest(t *testing.T) {
	d := dispatch.New(func(ctx context.Context, req echoReq) (echoResp, error) {
		return echoResp{Msg: "got:" + req.Msg}, nil
	}, nil)
	h := &Handler[echoReq, echoResp]{Dispatcher: d}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/invoke", strings.NewReader("")))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	var resp echoResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Msg != "got:" {
		t.Errorf("msg: got %q", resp.Msg)
	}
}

func TestResumeHandler(t *testing.T) {
	// Converter maps the JSON resume payload (map) onto the response type.
	d := dispatch.New(func(ctx context.Context, _ echoReq) (echoResp, error) {
		h, _ := invocation.FromContext(ctx)
		return echoResp{}, h.Suspend()
	}, &dispatch.Options[echoReq, echoResp]{
		Converter: func(_ echoReq, v any) (echoResp, error) {
			m, _ := v.(map[string]any)
			msg, _ := m["msg"].(string)
			return echoResp{Msg: msg}, nil
		},
	})
	rh := ResumeHandler(d)

	future, id := d.Dispatch(context.Background(), echoReq{Msg: "park"})

	rr := httptest.NewRecorder()
	rh.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/resume?id="+id, strings.NewReader(`{"msg":"woken"}`)))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, body %q", rr.Code, rr.Body.String())
	}
	v, err := future.Await(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v.Msg != "woken" {
		t.Errorf("msg: got %q, want woken", v.Msg)
	}

	// The invocation is gone now.
	rr = httptest.NewRecorder()
	rh.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/resume?id="+id, strings.NewReader(`{}`)))
	if rr.Code != http.StatusNotFound {
		t.Errorf("second resume status: got %d, want 404", rr.Code)
	}
}

func TestResumeHandler_Validation(t *testing.T) {
	d := dispatch.New(func(ctx context.Context, req echoReq) (echoResp, error) {
		return echoResp(req), nil
	}, nil)
	rh := ResumeHandler(d)

	rr := httptest.NewRecorder()
	rh.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/resume?id=x", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status: got %d, want 405", rr.Code)
	}

	rr = httptest.NewRecorder()
	rh.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/resume", strings.NewReader(`{}`)))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing id status: got %d, want 400", rr.Code)
	}
}
