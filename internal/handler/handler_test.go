package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"resource-pool/internal/model"
	"resource-pool/internal/pool"
	"resource-pool/internal/stats"
	"resource-pool/internal/worker"
)

func newTestPool(t *testing.T, opts pool.Options[*worker.Worker]) *pool.Pool[*worker.Worker] {
	t.Helper()

	p, err := pool.New(context.Background(), worker.New, opts)
	if err != nil {
		t.Fatalf("pool.New: %v", err)
	}
	return p
}

func postLease(t *testing.T, h *Handler, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/lease", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleLease(w, req)
	return w
}

func TestHandleLeaseValidation(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, pool.Options[*worker.Worker]{Size: 1})
	h := New(p, nil, time.Second)

	tests := []struct {
		name       string
		method     string
		body       []byte
		wantStatus int
		wantKind   string
	}{
		{
			name:       "method_not_allowed",
			method:     http.MethodGet,
			body:       nil,
			wantStatus: http.StatusMethodNotAllowed,
			wantKind:   "",
		},
		{
			name:       "invalid_json",
			method:     http.MethodPost,
			body:       []byte(`{"lease_id":`),
			wantStatus: http.StatusBadRequest,
			wantKind:   "bad_request",
		},
		{
			name:       "unknown_field",
			method:     http.MethodPost,
			body:       []byte(`{"lease_id":"l-1","bogus":true}`),
			wantStatus: http.StatusBadRequest,
			wantKind:   "bad_request",
		},
		{
			name:       "missing_lease_id",
			method:     http.MethodPost,
			body:       []byte(`{"hold_ms":5}`),
			wantStatus: http.StatusBadRequest,
			wantKind:   "bad_request",
		},
		{
			name:       "negative_hold",
			method:     http.MethodPost,
			body:       []byte(`{"lease_id":"l-1","hold_ms":-5}`),
			wantStatus: http.StatusBadRequest,
			wantKind:   "bad_request",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, "/lease", bytes.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.HandleLease(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantKind == "" {
				return
			}
			var out model.LeaseResponse
			if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if out.Error == nil || out.Error.Kind != tt.wantKind {
				t.Fatalf("expected error.kind=%q, got %+v", tt.wantKind, out.Error)
			}
		})
	}
}

func TestHandleLeaseSuccess(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, pool.Options[*worker.Worker]{Size: 1})
	h := New(p, nil, time.Second)

	w := postLease(t, h, []byte(`{"lease_id":"l-1","hold_ms":5}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var out model.LeaseResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Status != "ok" || out.LeaseID != "l-1" {
		t.Fatalf("unexpected response: %+v", out)
	}
	if out.WorkerID == "" {
		t.Fatal("expected a worker id")
	}

	// The worker must be back in the pool afterwards.
	if got := p.Stats(); got.Available != 1 || got.InUse != 0 {
		t.Fatalf("worker not released: %+v", got)
	}
}

func TestHandleLeaseWorkFailed(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, pool.Options[*worker.Worker]{Size: 1})
	h := New(p, nil, time.Second)

	w := postLease(t, h, []byte(`{"lease_id":"l-1","fail":true}`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var out model.LeaseResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Status != "error" || out.Error == nil || out.Error.Kind != "work_failed" {
		t.Fatalf("expected work_failed error, got %+v", out)
	}
	if got := p.Stats(); got.Available != 1 {
		t.Fatalf("worker not released after failure: %+v", got)
	}
}

func TestHandleLeaseTimeout(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, pool.Options[*worker.Worker]{
		Size:           1,
		AcquireTimeout: 30 * time.Millisecond,
	})
	h := New(p, nil, time.Second)

	held, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer func() {
		if err := p.Release(held); err != nil {
			t.Errorf("release: %v", err)
		}
	}()

	w := postLease(t, h, []byte(`{"lease_id":"l-1"}`))
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d: %s", w.Code, w.Body.String())
	}

	var out model.LeaseResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Error == nil || out.Error.Kind != "timeout" {
		t.Fatalf("expected timeout error, got %+v", out)
	}
}

func TestHandleStats(t *testing.T) {
	t.Parallel()

	mem := stats.NewMemory()
	p := newTestPool(t, pool.Options[*worker.Worker]{Size: 2, Recorder: mem})
	h := New(p, mem, time.Second)

	w := postLease(t, h, []byte(`{"lease_id":"l-1"}`))
	if w.Code != http.StatusOK {
		t.Fatalf("lease: expected 200, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	h.HandleStats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out model.StatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Pool.Size != 2 || out.Pool.Available != 2 {
		t.Fatalf("unexpected pool stats: %+v", out.Pool)
	}
	if out.Ops[stats.OpAcquired] != 1 || out.Ops[stats.OpReleased] != 1 {
		t.Fatalf("unexpected ops: %v", out.Ops)
	}

	post := httptest.NewRequest(http.MethodPost, "/stats", nil)
	rec = httptest.NewRecorder()
	h.HandleStats(rec, post)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST, got %d", rec.Code)
	}
}

func TestHandleDrain(t *testing.T) {
	t.Parallel()

	p := newTestPool(t, pool.Options[*worker.Worker]{Size: 1})
	h := New(p, nil, time.Second)

	req := httptest.NewRequest(http.MethodPost, "/drain", nil)
	w := httptest.NewRecorder()
	h.HandleDrain(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Leases after drain are rejected.
	lw := postLease(t, h, []byte(`{"lease_id":"l-1"}`))
	if lw.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after drain, got %d", lw.Code)
	}
	var out model.LeaseResponse
	if err := json.NewDecoder(lw.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Error == nil || out.Error.Kind != "drained" {
		t.Fatalf("expected drained error, got %+v", out)
	}

	// So is a second drain.
	w = httptest.NewRecorder()
	h.HandleDrain(w, httptest.NewRequest(http.MethodPost, "/drain", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for second drain, got %d", w.Code)
	}
}
