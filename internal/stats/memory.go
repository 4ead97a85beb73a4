package stats

import (
	"context"
	"sync"
	"time"
)

// Totals is a snapshot of accumulated counters.
type Totals struct {
	ByOp        map[string]int64 `json:"by_op"`
	TotalWaited time.Duration    `json:"total_waited_ns"`
}

// Memory is an in-memory recorder.
// Useful for tests and single-process deployments; it does not expire
// anything.
type Memory struct {
	mu     sync.Mutex
	byOp   map[string]int64
	waited time.Duration
}

func NewMemory() *Memory {
	return &Memory{byOp: make(map[string]int64)}
}

func (m *Memory) Record(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byOp[ev.Op]++
	m.waited += ev.Waited
	return nil
}

// Totals returns a copy of the accumulated counters.
func (m *Memory) Totals() Totals {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := Totals{
		ByOp:        make(map[string]int64, len(m.byOp)),
		TotalWaited: m.waited,
	}
	for op, n := range m.byOp {
		out.ByOp[op] = n
	}
	return out
}
