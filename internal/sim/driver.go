// Package sim runs batches of coalescent replicates across a worker
// pool and aggregates their branch tables.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"

	"popcoal/internal/branchtab"
	"popcoal/internal/coalescent"
	"popcoal/internal/jobqueue"
	"popcoal/internal/labels"
	"popcoal/internal/popnet"
)

// Config describes one simulation run.
type Config struct {
	Net *popnet.Network

	// Reps is the total number of replicates across all workers.
	Reps int64

	// Workers is the pool size; 0 detects cores. The pool never
	// exceeds Reps.
	Workers int

	// Seed is the base RNG seed. Worker w draws from a generator
	// seeded Seed+w, where w is the order in which workers start. With
	// one worker a run is reproducible given the base seed. With more,
	// worker start order, which batches each worker picks up, and merge
	// order vary between runs, so results are not repeatable bit for
	// bit.
	Seed int64

	// Singletons includes single-tip patterns in the table.
	Singletons bool

	// Bounds is the feasible region checked before any replicate
	// runs. Zero value means DefaultBounds.
	Bounds popnet.Bounds
}

// workerState is the per-worker state owned by one pool thread: a
// distinctly seeded generator and a private copy of the network.
type workerState struct {
	rng *rand.Rand
	sim *coalescent.Simulator
}

// Run simulates cfg.Reps gene genealogies and returns the normalized
// branch table. The aggregate table is the only shared mutable state;
// workers accumulate privately and merge once per batch.
func Run(ctx context.Context, cfg Config) (*branchtab.BranchTab, error) {
	if cfg.Net == nil {
		return nil, fmt.Errorf("population network is required")
	}
	if cfg.Reps <= 0 {
		return nil, fmt.Errorf("replicate count must be > 0")
	}
	bnd := cfg.Bounds
	if bnd == (popnet.Bounds{}) {
		bnd = popnet.DefaultBounds()
	}
	if err := cfg.Net.Feasible(bnd); err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if int64(workers) > cfg.Reps {
		workers = int(cfg.Reps)
	}

	all := labels.TipID(1)<<uint(cfg.Net.NSamples()) - 1
	aggregate := branchtab.New()
	var aggMu sync.Mutex

	var workerSeq int64
	queue, err := jobqueue.New(jobqueue.Config{
		MaxWorkers: workers,
		NewState: func() (any, error) {
			w := atomic.AddInt64(&workerSeq, 1) - 1
			simulator, err := coalescent.NewSimulator(cfg.Net.Dup())
			if err != nil {
				return nil, err
			}
			return &workerState{
				rng: rand.New(rand.NewSource(cfg.Seed + w)),
				sim: simulator,
			}, nil
		},
	})
	if err != nil {
		return nil, err
	}

	// Divide replicates among batches, one batch per worker slot.
	quot := cfg.Reps / int64(workers)
	rem := cfg.Reps % int64(workers)
	for w := 0; w < workers; w++ {
		batch := quot
		if int64(w) < rem {
			batch++
		}
		job := func(state any) error {
			ws := state.(*workerState)
			tab := branchtab.New()
			for r := int64(0); r < batch; r++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				g, err := ws.sim.Replicate(ws.rng)
				if err != nil {
					return err
				}
				coalescent.Tabulate(g, tab, all, cfg.Singletons)
			}
			aggMu.Lock()
			aggregate.Merge(tab)
			aggMu.Unlock()
			return nil
		}
		if err := queue.Add(job); err != nil {
			return nil, err
		}
	}

	queue.Close()
	if err := queue.Wait(); err != nil {
		return nil, err
	}

	if err := aggregate.DivideBy(float64(cfg.Reps)); err != nil {
		return nil, err
	}
	if err := aggregate.Normalize(); err != nil {
		return nil, err
	}
	return aggregate, nil
}
