// Package pool implements a bounded pool of reusable resource
// instances. Free instances are allocated round-robin; exhausted pools
// queue callers FIFO and hand released instances directly to the
// oldest waiter.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"resource-pool/internal/poolerr"
	"resource-pool/internal/stats"
)

// Factory creates one new resource instance.
// It must produce distinct values; the pool tracks instances by
// identity.
type Factory[T comparable] func(ctx context.Context) (T, error)

// Disposer destroys an instance during drain.
type Disposer[T comparable] func(ctx context.Context, instance T) error

// Options configures a pool.
type Options[T comparable] struct {
	// Size is the number of instances created up front. Required.
	Size int

	// MaxSize permits on-demand growth under contention up to this
	// bound. Zero means Size, i.e. no growth.
	MaxSize int

	// AcquireTimeout bounds how long Acquire waits for a free
	// instance. Zero means wait until the context is done.
	AcquireTimeout time.Duration

	// Disposer, when set, is invoked for every instance on Drain.
	Disposer Disposer[T]

	// Recorder, when set, receives acquire/release outcome events.
	Recorder stats.Recorder
}

// Snapshot is a point-in-time view of pool occupancy.
type Snapshot struct {
	Size      int `json:"size"`
	Available int `json:"available"`
	InUse     int `json:"in_use"`
	Waiting   int `json:"waiting"`
}

// waiter is a queued acquisition request. Exactly one of a release
// handoff, a drain, a timeout, or a context cancellation settles it;
// settled is flipped under the pool mutex so the losers become no-ops.
type waiter[T comparable] struct {
	ch      chan T // buffered with one slot so handoff never blocks
	err     error  // set before ch is closed on drain
	settled bool
}

// Pool owns a bounded set of reusable instances of T.
//
// All state lives behind one mutex: the single-writer serialization
// the design needs on a multi-threaded runtime. Acquire is the only
// operation that suspends; Release does bounded synchronous work.
type Pool[T comparable] struct {
	factory  Factory[T]
	disposer Disposer[T]
	recorder stats.Recorder
	timeout  time.Duration
	maxSize  int

	mu        sync.Mutex
	instances []T
	free      []bool
	index     map[T]int // instance identity -> slot
	available int
	cursor    int // round-robin scan start
	growing   int // factory calls in flight beyond the initial fill
	waiters   []*waiter[T]
	draining  bool // set by the first Drain, never cleared: acquires stay rejected
	inDrain   bool // a Drain call is currently waiting or disposing
	drained   bool // disposal finished, the pool is terminally empty
	allFree   chan struct{} // set by Drain, closed when the pool quiesces
}

// New creates a pool and fills it by invoking factory Size times
// concurrently. If any creation fails, the instances already created
// are disposed and the error is returned.
func New[T comparable](ctx context.Context, factory Factory[T], opts Options[T]) (*Pool[T], error) {
	if factory == nil {
		return nil, fmt.Errorf("pool: nil factory: %w", poolerr.ErrInvalidConfig)
	}
	if opts.Size <= 0 {
		return nil, fmt.Errorf("pool: size must be positive, got %d: %w", opts.Size, poolerr.ErrInvalidConfig)
	}
	maxSize := opts.MaxSize
	if maxSize == 0 {
		maxSize = opts.Size
	}
	if maxSize < opts.Size {
		return nil, fmt.Errorf("pool: max size %d below size %d: %w", maxSize, opts.Size, poolerr.ErrInvalidConfig)
	}

	instances := make([]T, opts.Size)
	created := make([]bool, opts.Size)

	g, gctx := errgroup.WithContext(ctx)
	for i := range instances {
		i := i
		g.Go(func() error {
			inst, err := factory(gctx)
			if err != nil {
				return fmt.Errorf("create instance %d: %w", i, err)
			}
			instances[i] = inst
			created[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if opts.Disposer != nil {
			for i, inst := range instances {
				if created[i] {
					_ = opts.Disposer(ctx, inst)
				}
			}
		}
		return nil, fmt.Errorf("pool: %w", err)
	}

	index := make(map[T]int, len(instances))
	free := make([]bool, len(instances))
	for i, inst := range instances {
		if _, dup := index[inst]; dup {
			return nil, fmt.Errorf("pool: factory returned duplicate instances: %w", poolerr.ErrInvalidConfig)
		}
		index[inst] = i
		free[i] = true
	}

	return &Pool[T]{
		factory:   factory,
		disposer:  opts.Disposer,
		recorder:  opts.Recorder,
		timeout:   opts.AcquireTimeout,
		maxSize:   maxSize,
		instances: instances,
		free:      free,
		index:     index,
		available: len(instances),
	}, nil
}

// Acquire returns a free instance, creating one when growth capacity
// remains, and otherwise waits in FIFO order until a release reaches
// this caller.
//
// It fails with poolerr.ErrAcquireTimeout when the pool's
// AcquireTimeout elapses first, poolerr.ErrAcquireAborted when ctx is
// done first, and poolerr.ErrPoolDrained once drain has started.
func (p *Pool[T]) Acquire(ctx context.Context) (T, error) {
	var zero T

	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		p.record(ctx, stats.OpRejected, 0)
		return zero, fmt.Errorf("pool: acquire: %w", poolerr.ErrPoolDrained)
	}

	if p.available > 0 {
		inst := p.takeFreeLocked()
		p.mu.Unlock()
		p.record(ctx, stats.OpAcquired, 0)
		return inst, nil
	}

	if len(p.instances)+p.growing < p.maxSize {
		return p.grow(ctx)
	}

	w := &waiter[T]{ch: make(chan T, 1)}
	p.waiters = append(p.waiters, w)
	p.mu.Unlock()

	return p.wait(ctx, w)
}

// takeFreeLocked selects the next free instance scanning circularly
// from the cursor and marks it busy. Caller holds p.mu and has checked
// available > 0.
func (p *Pool[T]) takeFreeLocked() T {
	n := len(p.instances)
	for i := 0; i < n; i++ {
		idx := (p.cursor + i) % n
		if p.free[idx] {
			p.free[idx] = false
			p.available--
			p.cursor = (idx + 1) % n
			return p.instances[idx]
		}
	}
	panic("pool: available > 0 with no free instance")
}

// grow creates one instance beyond the current set and hands it to the
// caller busy, skipping the waiter queue. Called with p.mu held; the
// factory runs unlocked and a reservation in p.growing keeps
// concurrent growers within maxSize.
func (p *Pool[T]) grow(ctx context.Context) (T, error) {
	var zero T

	p.growing++
	p.mu.Unlock()

	inst, err := p.factory(ctx)

	p.mu.Lock()
	p.growing--
	if err != nil {
		p.signalDrainLocked()
		p.mu.Unlock()
		return zero, fmt.Errorf("pool: grow: %w", err)
	}
	if p.draining {
		// Drain started while the factory ran: the new instance is
		// never registered, only disposed.
		p.signalDrainLocked()
		p.mu.Unlock()
		if p.disposer != nil {
			_ = p.disposer(ctx, inst)
		}
		p.record(ctx, stats.OpRejected, 0)
		return zero, fmt.Errorf("pool: acquire: %w", poolerr.ErrPoolDrained)
	}
	if _, dup := p.index[inst]; dup {
		p.mu.Unlock()
		return zero, fmt.Errorf("pool: factory returned duplicate instances: %w", poolerr.ErrInvalidConfig)
	}
	p.index[inst] = len(p.instances)
	p.instances = append(p.instances, inst)
	p.free = append(p.free, false)
	p.mu.Unlock()

	p.record(ctx, stats.OpGrown, 0)
	return inst, nil
}

// wait blocks the caller on its waiter until a handoff, the pool
// timeout, or ctx settles it.
func (p *Pool[T]) wait(ctx context.Context, w *waiter[T]) (T, error) {
	var zero T
	start := time.Now()

	var timeoutC <-chan time.Time
	if p.timeout > 0 {
		t := time.NewTimer(p.timeout)
		defer t.Stop()
		timeoutC = t.C
	}

	select {
	case inst, ok := <-w.ch:
		if !ok {
			p.record(ctx, stats.OpRejected, time.Since(start))
			return zero, fmt.Errorf("pool: acquire: %w", w.err)
		}
		p.record(ctx, stats.OpHandoff, time.Since(start))
		return inst, nil

	case <-timeoutC:
		waitErr := fmt.Errorf("pool: acquire: waited %s: %w", p.timeout, poolerr.ErrAcquireTimeout)
		return p.loseWait(ctx, w, waitErr, stats.OpTimeout, start)

	case <-ctx.Done():
		waitErr := fmt.Errorf("pool: acquire: %w: %w", poolerr.ErrAcquireAborted, ctx.Err())
		return p.loseWait(ctx, w, waitErr, stats.OpAborted, start)
	}
}

// loseWait retires w after its timer or context fired. A handoff or
// drain that settled w first still wins: exactly one settlement per
// waiter, the late trigger becomes a no-op.
func (p *Pool[T]) loseWait(ctx context.Context, w *waiter[T], waitErr error, op string, start time.Time) (T, error) {
	var zero T

	p.mu.Lock()
	if !w.settled {
		w.settled = true
		for i, q := range p.waiters {
			if q == w {
				p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
				break
			}
		}
		p.mu.Unlock()
		p.record(ctx, op, time.Since(start))
		return zero, waitErr
	}
	p.mu.Unlock()

	// Settled concurrently: the handoff or drain outcome is already in
	// the channel and wins the race.
	inst, ok := <-w.ch
	if !ok {
		p.record(ctx, stats.OpRejected, time.Since(start))
		return zero, fmt.Errorf("pool: acquire: %w", w.err)
	}
	p.record(ctx, stats.OpHandoff, time.Since(start))
	return inst, nil
}

// Release returns an acquired instance to the pool. When waiters are
// queued the instance transfers to the oldest one without an
// intermediate free period; otherwise it is marked free.
//
// It fails with poolerr.ErrForeignInstance for a handle this pool does
// not track and poolerr.ErrDoubleRelease for an instance already free.
// Both leave pool state untouched.
func (p *Pool[T]) Release(instance T) error {
	p.mu.Lock()

	idx, ok := p.index[instance]
	if !ok {
		p.mu.Unlock()
		return fmt.Errorf("pool: release: %w", poolerr.ErrForeignInstance)
	}
	if p.free[idx] {
		p.mu.Unlock()
		return fmt.Errorf("pool: release: %w", poolerr.ErrDoubleRelease)
	}

	if len(p.waiters) > 0 {
		w := p.waiters[0]
		p.waiters = p.waiters[1:]
		w.settled = true
		w.ch <- instance
		p.mu.Unlock()
		p.record(context.Background(), stats.OpReleased, 0)
		return nil
	}

	p.free[idx] = true
	p.available++
	p.signalDrainLocked()
	p.mu.Unlock()

	p.record(context.Background(), stats.OpReleased, 0)
	return nil
}

// signalDrainLocked wakes a pending Drain once every instance is home
// and no growth is in flight. Caller holds p.mu.
func (p *Pool[T]) signalDrainLocked() {
	if p.draining && p.allFree != nil && p.available == len(p.instances) && p.growing == 0 {
		close(p.allFree)
		p.allFree = nil
	}
}

// WithResource acquires an instance, runs fn with it, and releases it
// on every exit path, including a panic in fn. The callback's error
// takes precedence over a release error.
func (p *Pool[T]) WithResource(ctx context.Context, fn func(instance T) error) error {
	inst, err := p.Acquire(ctx)
	if err != nil {
		return err
	}

	released := false
	defer func() {
		if !released {
			_ = p.Release(inst)
		}
	}()

	fnErr := fn(inst)
	released = true
	if relErr := p.Release(inst); relErr != nil && fnErr == nil {
		return relErr
	}
	return fnErr
}

// Stats reports current occupancy. Read-only, no side effects.
func (p *Pool[T]) Stats() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Snapshot{
		Size:      len(p.instances),
		Available: p.available,
		InUse:     len(p.instances) - p.available,
		Waiting:   len(p.waiters),
	}
}

// Drain rejects queued waiters and new acquires with
// poolerr.ErrPoolDrained, waits for every held instance to come home,
// then disposes all instances and leaves the pool terminally empty.
//
// A release racing the drain completes normally; the returned instance
// counts toward drain completion and is disposed with the rest. A
// Drain concurrent with one in flight, or after disposal finished,
// fails with poolerr.ErrPoolDrained. A drain interrupted by its
// context leaves the pool rejecting acquires but undisposed; calling
// Drain again resumes the wait and finishes the disposal.
func (p *Pool[T]) Drain(ctx context.Context) error {
	p.mu.Lock()
	if p.drained || p.inDrain {
		p.mu.Unlock()
		return fmt.Errorf("pool: drain: %w", poolerr.ErrPoolDrained)
	}
	p.draining = true
	p.inDrain = true

	for _, w := range p.waiters {
		w.settled = true
		w.err = poolerr.ErrPoolDrained
		close(w.ch)
	}
	p.waiters = nil

	done := make(chan struct{})
	if p.available == len(p.instances) && p.growing == 0 {
		close(done)
	} else {
		p.allFree = done
	}
	p.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		p.mu.Lock()
		p.inDrain = false
		p.allFree = nil
		p.mu.Unlock()
		return fmt.Errorf("pool: drain: %w", ctx.Err())
	}

	p.mu.Lock()
	instances := p.instances
	p.instances = nil
	p.free = nil
	p.index = make(map[T]int)
	p.available = 0
	p.cursor = 0
	p.drained = true
	p.inDrain = false
	p.mu.Unlock()

	if p.disposer == nil {
		return nil
	}
	var errs []error
	for _, inst := range instances {
		if err := p.disposer(ctx, inst); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// record forwards an event to the recorder, if any. Best effort: a
// failing stats sink must not fail pool operations.
func (p *Pool[T]) record(ctx context.Context, op string, waited time.Duration) {
	if p.recorder == nil {
		return
	}
	_ = p.recorder.Record(ctx, stats.Event{At: time.Now(), Op: op, Waited: waited})
}
