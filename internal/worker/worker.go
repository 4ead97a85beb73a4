// Package worker provides the pooled resource served by the lease
// server: an identified worker performing cancellation-aware work.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrWorkFailed reports a failure injected through the lease request.
var ErrWorkFailed = errors.New("work failed")

// Worker is one pooled resource instance.
type Worker struct {
	ID        string
	CreatedAt time.Time

	closed bool
}

// New creates a worker with a unique ID. It is the pool factory.
func New(_ context.Context) (*Worker, error) {
	return &Worker{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}, nil
}

// Perform holds the worker for d, returning early when ctx is done.
// fail injects a failure after the hold, for exercising error paths.
func (w *Worker) Perform(ctx context.Context, d time.Duration, fail bool) error {
	if w.closed {
		return fmt.Errorf("worker %s: used after close", w.ID)
	}

	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()

		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if fail {
		return fmt.Errorf("worker %s: %w", w.ID, ErrWorkFailed)
	}
	return nil
}

// Close marks the worker unusable. It is the pool disposer.
func (w *Worker) Close(_ context.Context) error {
	w.closed = true
	return nil
}
