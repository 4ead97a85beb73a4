// Package handler implements the HTTP layer of the lease server.
// It validates requests, runs leases against the worker pool with a
// per-request timeout, and shapes structured responses.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"resource-pool/internal/model"
	"resource-pool/internal/pool"
	"resource-pool/internal/poolerr"
	"resource-pool/internal/stats"
	"resource-pool/internal/worker"
)

// workerPool is the slice of the pool API the handlers need.
type workerPool interface {
	WithResource(ctx context.Context, fn func(instance *worker.Worker) error) error
	Stats() pool.Snapshot
	Drain(ctx context.Context) error
}

// totalsSource exposes accumulated recorder counters for /stats.
type totalsSource interface {
	Totals() stats.Totals
}

// Handler wires HTTP requests to the worker pool.
type Handler struct {
	pool           workerPool
	totals         totalsSource
	requestTimeout time.Duration
}

// New returns a Handler backed by the given pool.
//
// It panics if pool is nil. totals may be nil, in which case /stats
// reports only the pool snapshot. A non-positive requestTimeout falls
// back to a default.
func New(pool workerPool, totals totalsSource, requestTimeout time.Duration) *Handler {
	if pool == nil {
		panic("handler.New: nil pool")
	}
	if requestTimeout <= 0 {
		requestTimeout = 2 * time.Second
	}
	return &Handler{
		pool:           pool,
		totals:         totals,
		requestTimeout: requestTimeout,
	}
}

// HandleLease leases a worker, holds it for the requested duration,
// and releases it.
//
// The request must be a POST with a valid JSON body. The lease runs
// under a per-request timeout so a saturated pool fails predictably
// instead of parking the client forever.
func (h *Handler) HandleLease(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req model.LeaseRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.LeaseResponse{
			Status: "error",
			Error:  &model.ErrorPayload{Kind: "bad_request", Message: "invalid JSON"},
		})
		return
	}

	if req.LeaseID == "" {
		writeJSON(w, http.StatusBadRequest, model.LeaseResponse{
			Status: "error",
			Error:  &model.ErrorPayload{Kind: "bad_request", Message: "lease_id is required"},
		})
		return
	}
	if req.HoldMS < 0 {
		writeJSON(w, http.StatusBadRequest, model.LeaseResponse{
			Status:  "error",
			LeaseID: req.LeaseID,
			Error:   &model.ErrorPayload{Kind: "bad_request", Message: "hold_ms must not be negative"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var workerID string
	start := time.Now()
	err := h.pool.WithResource(ctx, func(wk *worker.Worker) error {
		workerID = wk.ID
		return wk.Perform(ctx, time.Duration(req.HoldMS)*time.Millisecond, req.Fail)
	})

	resp := model.LeaseResponse{
		Status:   "ok",
		LeaseID:  req.LeaseID,
		WorkerID: workerID,
		HeldMS:   time.Since(start).Milliseconds(),
	}
	if err != nil {
		resp.Status = "error"
		resp.Error = &model.ErrorPayload{
			Kind:    leaseKind(err),
			Message: "lease failed",
		}
	}

	writeJSON(w, leaseStatus(err), resp)
}

// HandleStats reports pool occupancy and accumulated counters.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snap := h.pool.Stats()
	resp := model.StatsResponse{
		Pool: model.PoolStats{
			Size:      snap.Size,
			Available: snap.Available,
			InUse:     snap.InUse,
			Waiting:   snap.Waiting,
		},
	}
	if h.totals != nil {
		totals := h.totals.Totals()
		resp.Ops = totals.ByOp
		resp.TotalWaitedMS = totals.TotalWaited.Milliseconds()
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleDrain drains the pool: pending and future leases are rejected,
// held workers are waited for and then disposed.
func (h *Handler) HandleDrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	if err := h.pool.Drain(ctx); err != nil {
		writeJSON(w, poolerr.HTTPStatus(err), model.DrainResponse{
			Status: "error",
			Error:  &model.ErrorPayload{Kind: poolerr.Kind(err), Message: "drain failed"},
		})
		return
	}

	writeJSON(w, http.StatusOK, model.DrainResponse{Status: "ok"})
}

// leaseKind classifies a lease error, distinguishing the injected work
// failure from pool conditions.
func leaseKind(err error) string {
	if errors.Is(err, worker.ErrWorkFailed) {
		return "work_failed"
	}
	return poolerr.Kind(err)
}

func leaseStatus(err error) int {
	if errors.Is(err, worker.ErrWorkFailed) {
		return http.StatusBadRequest
	}
	return poolerr.HTTPStatus(err)
}

// writeJSON writes v as a JSON response with the given status code.
// The Content-Type is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
