package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/ardalan-sia/signal-timing/pkg/traffic"
)

// Driver advances every plan of an intersection one tick at a time. Each tick
// draws one uniform per direction and feeds the same arrival outcome to every
// plan, so differences between plans come from signal timing alone.
type Driver struct {
	id     uuid.UUID
	cfg    DriverConfig
	src    Source
	queues []*traffic.QueueMap

	interval  time.Duration
	observers []Observer

	mu     sync.Mutex
	tick   int
	paused bool
	wake   chan struct{}
}

// Option customizes a Driver.
type Option func(*Driver)

// WithInterval paces Run at one tick per interval for an external renderer.
func WithInterval(interval time.Duration) Option {
	return func(d *Driver) { d.interval = interval }
}

// WithID overrides the generated run ID.
func WithID(id uuid.UUID) Option {
	return func(d *Driver) { d.id = id }
}

// WithObserver registers an observer at construction.
func WithObserver(o Observer) Option {
	return func(d *Driver) { d.observers = append(d.observers, o) }
}

// NewDriver validates cfg and starts every plan with empty queues.
func NewDriver(cfg DriverConfig, src Source, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, traffic.NewInvalidConfigError("source", "a random source is required")
	}

	cfg.Directions = append([]traffic.Direction(nil), cfg.Directions...)
	cfg.Plans = append([]Plan(nil), cfg.Plans...)
	rates := make(map[traffic.Direction]float64, len(cfg.Rates))
	for d, r := range cfg.Rates {
		rates[d] = r
	}
	cfg.Rates = rates

	d := &Driver{
		id:   uuid.New(),
		cfg:  cfg,
		src:  src,
		wake: make(chan struct{}, 1),
	}
	d.queues = lo.Map(cfg.Plans, func(Plan, int) *traffic.QueueMap {
		return traffic.NewQueueMap(cfg.Directions...)
	})
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// ID identifies this run in observations and frames.
func (d *Driver) ID() uuid.UUID { return d.id }

// Config returns the validated configuration.
func (d *Driver) Config() DriverConfig { return d.cfg }

// AddObserver registers o for subsequent callbacks.
func (d *Driver) AddObserver(o Observer) {
	d.mu.Lock()
	d.observers = append(d.observers, o)
	d.mu.Unlock()
}

// Tick is the number of completed ticks.
func (d *Driver) Tick() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tick
}

// Queues returns the live queue state of the named plan.
func (d *Driver) Queues(plan string) (*traffic.QueueMap, bool) {
	for i, p := range d.cfg.Plans {
		if p.Name == plan {
			return d.queues[i], true
		}
	}
	return nil, false
}

// Paused reports whether Step is currently a no-op.
func (d *Driver) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

// Pause freezes the simulation. Paused ticks consume no draws and do not
// advance the tick counter.
func (d *Driver) Pause() { d.setPaused(func(bool) bool { return true }) }

// Resume unfreezes the simulation and wakes a blocked Run.
func (d *Driver) Resume() { d.setPaused(func(bool) bool { return false }) }

// TogglePause flips the pause flag and returns the new value.
func (d *Driver) TogglePause() bool {
	return d.setPaused(func(paused bool) bool { return !paused })
}

func (d *Driver) setPaused(next func(bool) bool) bool {
	d.mu.Lock()
	paused := next(d.paused)
	if d.paused == paused {
		d.mu.Unlock()
		return paused
	}
	d.paused = paused
	tick := d.tick
	observers := append([]Observer(nil), d.observers...)
	d.mu.Unlock()

	if !paused {
		select {
		case d.wake <- struct{}{}:
		default:
		}
	}
	for _, o := range observers {
		if paused {
			o.OnPause(d, tick)
		} else {
			o.OnResume(d, tick)
		}
	}
	return paused
}

// Step resolves one tick for every plan. It returns false, touching nothing,
// while the driver is paused.
func (d *Driver) Step() (Observation, bool) {
	d.mu.Lock()
	if d.paused {
		d.mu.Unlock()
		return Observation{}, false
	}

	dt := d.cfg.dt()
	t := float64(d.tick) * dt
	arrived := Arrivals(d.cfg.Directions, d.cfg.Rates, dt, d.src)

	obs := Observation{RunID: d.id, Tick: d.tick, Plans: make([]PlanObservation, len(d.cfg.Plans))}
	for i, p := range d.cfg.Plans {
		idx, entry, ok := p.Schedule.Active(t)
		var green []traffic.Direction
		if ok {
			green = entry.Green
		}
		obs.Plans[i] = PlanObservation{
			Name:       p.Name,
			Phase:      idx,
			Approaches: Apply(d.queues[i], arrived, green, p.ServiceRate*dt),
		}
	}
	d.tick++
	observers := append([]Observer(nil), d.observers...)
	d.mu.Unlock()

	for _, o := range observers {
		o.OnTick(d, obs)
	}
	return obs, true
}

// Run steps until ticks ticks have completed, ctx is done or sink fails. A
// paused driver blocks Run until Resume. With an interval set, one tick is
// attempted per interval and paused intervals are dropped.
func (d *Driver) Run(ctx context.Context, ticks int, sink func(Observation) error) error {
	var pace <-chan time.Time
	if d.interval > 0 {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		pace = ticker.C
	}

	for d.Tick() < ticks {
		if pace != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pace:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		obs, ok := d.Step()
		if !ok {
			if pace == nil {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-d.wake:
				}
			}
			continue
		}
		if sink != nil {
			if err := sink(obs); err != nil {
				return err
			}
		}
	}

	d.mu.Lock()
	tick := d.tick
	observers := append([]Observer(nil), d.observers...)
	d.mu.Unlock()
	for _, o := range observers {
		o.OnComplete(d, tick)
	}
	return nil
}
