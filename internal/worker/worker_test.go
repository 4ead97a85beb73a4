package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewDistinctIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	a, err := New(ctx)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	b, err := New(ctx)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct non-empty ids, got %q and %q", a.ID, b.ID)
	}
}

func TestPerform(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	w, err := New(ctx)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := w.Perform(ctx, 0, false); err != nil {
		t.Fatalf("zero hold: %v", err)
	}
	if err := w.Perform(ctx, time.Millisecond, true); !errors.Is(err, ErrWorkFailed) {
		t.Fatalf("expected ErrWorkFailed, got %v", err)
	}
}

func TestPerformCanceled(t *testing.T) {
	t.Parallel()

	w, err := New(context.Background())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := w.Perform(ctx, time.Second, false); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestPerformAfterClose(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	w, err := New(ctx)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := w.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Perform(ctx, 0, false); err == nil {
		t.Fatal("expected an error using a closed worker")
	}
}
