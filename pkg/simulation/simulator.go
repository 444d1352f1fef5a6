package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/ardalan-sia/signal-timing/pkg/traffic"
)

// Replication is one isolated run: its own driver, queues and random stream.
type Replication struct {
	ID     uuid.UUID
	Seed   uint64
	Driver *Driver
	Trace  *Trace
}

// Simulator runs independent replications of the same configuration.
type Simulator struct {
	Config       DriverConfig
	Ticks        int
	Replications []*Replication
}

// NewSimulator validates cfg up front so RegisterReplication cannot fail on it later.
func NewSimulator(cfg DriverConfig, ticks int) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ticks <= 0 {
		return nil, traffic.NewInvalidConfigError("ticks", "must be positive, got %d", ticks)
	}
	return &Simulator{Config: cfg, Ticks: ticks}, nil
}

// RegisterReplication adds a replication seeded with seed.
func (s *Simulator) RegisterReplication(seed uint64, opts ...Option) (*Replication, error) {
	d, err := NewDriver(s.Config, NewSource(seed), opts...)
	if err != nil {
		return nil, err
	}
	r := &Replication{ID: d.ID(), Seed: seed, Driver: d, Trace: NewTrace(d.Config())}
	s.Replications = append(s.Replications, r)
	return r, nil
}

// Run executes every registered replication on its own goroutine and waits.
func (s *Simulator) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	done := make(chan error, len(s.Replications))
	for _, r := range s.Replications {
		wg.Add(1)
		go func(rep *Replication) {
			defer wg.Done()
			if err := rep.Driver.Run(ctx, s.Ticks, rep.Trace.Record); err != nil {
				done <- fmt.Errorf("replication %s: %w", rep.ID, err)
			}
		}(r)
	}

	wg.Wait()
	close(done)

	var errs []error
	for err := range done {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Aggregate is the spread of a per-replication statistic.
type Aggregate struct {
	Plan         string
	Direction    traffic.Direction
	MeanQueue    float64 // mean over replications of the time-averaged queue
	StdDev       float64
	MaxQueue     float64
	Replications int
}

// Aggregate reduces every replication trace to one entry per plan and direction.
func (s *Simulator) Aggregate() []Aggregate {
	if len(s.Replications) == 0 {
		return nil
	}
	type key struct {
		plan string
		dir  traffic.Direction
	}
	means := make(map[key][]float64)
	maxes := make(map[key]float64)
	var order []key
	for _, r := range s.Replications {
		for _, st := range r.Trace.Summarize() {
			k := key{st.Plan, st.Direction}
			if _, seen := means[k]; !seen {
				order = append(order, k)
			}
			means[k] = append(means[k], st.MeanQueue)
			if st.MaxQueue > maxes[k] {
				maxes[k] = st.MaxQueue
			}
		}
	}

	out := make([]Aggregate, 0, len(order))
	for _, k := range order {
		xs := means[k]
		a := Aggregate{Plan: k.plan, Direction: k.dir, MaxQueue: maxes[k], Replications: len(xs)}
		if len(xs) > 1 {
			a.MeanQueue, a.StdDev = stat.MeanStdDev(xs, nil)
		} else {
			a.MeanQueue = xs[0]
		}
		out = append(out, a)
	}
	return out
}
