// Package stats records pool acquire/release outcomes.
// Stores are best effort: the pool drops Record errors.
package stats

import (
	"context"
	"time"
)

// Ops recorded by the pool.
const (
	OpAcquired = "acquired" // instance handed out from the free set
	OpHandoff  = "handoff"  // instance handed directly to a waiter
	OpGrown    = "grown"    // instance created on demand under contention
	OpTimeout  = "timeout"  // waiter gave up after the configured deadline
	OpAborted  = "aborted"  // waiter canceled by its context
	OpRejected = "rejected" // acquire refused because the pool is draining
	OpReleased = "released" // instance returned to the free set
)

// Event is one recorded pool outcome.
type Event struct {
	At     time.Time
	Op     string
	Waited time.Duration // time spent queued, zero on fast paths
}

// Recorder receives pool events.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}
