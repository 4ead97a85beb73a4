// Package app wires configuration into a ready worker pool.
package app

import (
	"context"
	"time"

	"resource-pool/internal/pool"
	"resource-pool/internal/stats"
	"resource-pool/internal/worker"
)

type Config struct {
	PoolSize       int
	MaxPoolSize    int // 0 disables growth
	AcquireTimeout time.Duration
	RequestTimeout time.Duration
	Recorder       stats.Recorder // optional extra sink (e.g. Redis)
}

type App struct {
	Pool           *pool.Pool[*worker.Worker]
	Stats          *stats.Memory
	RequestTimeout time.Duration
}

// New builds the worker pool with defaults applied. The in-memory
// stats store always feeds the stats endpoint; an extra recorder from
// the config is fanned in alongside it.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 4
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	mem := stats.NewMemory()
	var rec stats.Recorder = mem
	if cfg.Recorder != nil {
		rec = stats.Multi(mem, cfg.Recorder)
	}

	p, err := pool.New(ctx, worker.New, pool.Options[*worker.Worker]{
		Size:           cfg.PoolSize,
		MaxSize:        cfg.MaxPoolSize,
		AcquireTimeout: cfg.AcquireTimeout,
		Disposer: func(ctx context.Context, w *worker.Worker) error {
			return w.Close(ctx)
		},
		Recorder: rec,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		Pool:           p,
		Stats:          mem,
		RequestTimeout: cfg.RequestTimeout,
	}, nil
}
