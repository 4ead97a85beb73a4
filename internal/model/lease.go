// Package model defines the request and response payloads used by the
// lease API. It keeps transport-level types in one place for reuse.
package model

// LeaseRequest is the input payload for leasing a pooled worker.
type LeaseRequest struct {
	LeaseID string `json:"lease_id"`
	HoldMS  int64  `json:"hold_ms,omitempty"` // how long to hold the worker
	Fail    bool   `json:"fail,omitempty"`    // inject a work failure
}

// LeaseResponse is the output payload returned by the lease handler.
type LeaseResponse struct {
	Status   string        `json:"status"` // "ok" | "error"
	LeaseID  string        `json:"lease_id"`
	WorkerID string        `json:"worker_id,omitempty"`
	HeldMS   int64         `json:"held_ms,omitempty"`
	Error    *ErrorPayload `json:"error,omitempty"`
}

// PoolStats mirrors the pool occupancy snapshot on the wire.
type PoolStats struct {
	Size      int `json:"size"`
	Available int `json:"available"`
	InUse     int `json:"in_use"`
	Waiting   int `json:"waiting"`
}

// StatsResponse is the output payload of the stats endpoint.
type StatsResponse struct {
	Pool          PoolStats        `json:"pool"`
	Ops           map[string]int64 `json:"ops,omitempty"`
	TotalWaitedMS int64            `json:"total_waited_ms"`
}

// DrainResponse is the output payload of the drain endpoint.
type DrainResponse struct {
	Status string        `json:"status"` // "ok" | "error"
	Error  *ErrorPayload `json:"error,omitempty"`
}

// ErrorPayload describes an error response.
type ErrorPayload struct {
	Kind    string `json:"kind"`              // "timeout", "drained", ...
	Message string `json:"message,omitempty"` // optional, human-readable error message
}
