package observers

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ardalan-sia/signal-timing/pkg/simulation"
	"github.com/ardalan-sia/signal-timing/pkg/traffic"
)

// ApproachMetrics accumulates what one plan saw on one direction.
type ApproachMetrics struct {
	Plan       string
	Direction  traffic.Direction
	Ticks      int
	GreenTicks int
	QueueSum   int
	MaxQueue   int
}

// MeanQueue is the average queue length over observed ticks.
func (m ApproachMetrics) MeanQueue() float64 {
	if m.Ticks == 0 {
		return 0
	}
	return float64(m.QueueSum) / float64(m.Ticks)
}

type approachKey struct {
	plan string
	dir  traffic.Direction
}

// MetricsObserver collects metrics about driver execution
type MetricsObserver struct {
	ticks      int
	pauses     int
	resumes    int
	completes  int
	pausedAt   map[uuid.UUID]time.Time
	pausedFor  time.Duration
	approaches map[approachKey]*ApproachMetrics
	mutex      sync.RWMutex
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{
		pausedAt:   make(map[uuid.UUID]time.Time),
		approaches: make(map[approachKey]*ApproachMetrics),
	}
}

// OnTick records queue metrics
func (o *MetricsObserver) OnTick(d *simulation.Driver, obs simulation.Observation) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.ticks++
	for _, p := range obs.Plans {
		for _, a := range p.Approaches {
			key := approachKey{plan: p.Name, dir: a.Direction}
			m, ok := o.approaches[key]
			if !ok {
				m = &ApproachMetrics{Plan: p.Name, Direction: a.Direction}
				o.approaches[key] = m
			}
			m.Ticks++
			m.QueueSum += a.Queue
			if a.Queue > m.MaxQueue {
				m.MaxQueue = a.Queue
			}
			if a.Green {
				m.GreenTicks++
			}
		}
	}
}

// OnPause records pause metrics
func (o *MetricsObserver) OnPause(d *simulation.Driver, tick int) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.pauses++
	o.pausedAt[d.ID()] = time.Now()
}

// OnResume records resume metrics
func (o *MetricsObserver) OnResume(d *simulation.Driver, tick int) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.resumes++
	if at, ok := o.pausedAt[d.ID()]; ok {
		o.pausedFor += time.Since(at)
		delete(o.pausedAt, d.ID())
	}
}

// OnComplete counts finished runs
func (o *MetricsObserver) OnComplete(d *simulation.Driver, tick int) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.completes++
}

// Ticks returns the number of observed ticks across all drivers
func (o *MetricsObserver) Ticks() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.ticks
}

// Pauses returns the pause and resume counts
func (o *MetricsObserver) Pauses() (pauses, resumes int) {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.pauses, o.resumes
}

// PausedFor returns the wall time spent paused, summed over drivers
func (o *MetricsObserver) PausedFor() time.Duration {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.pausedFor
}

// Completed returns the number of finished runs
func (o *MetricsObserver) Completed() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.completes
}

// Approaches returns a snapshot ordered by plan name, then direction
func (o *MetricsObserver) Approaches() []ApproachMetrics {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	out := make([]ApproachMetrics, 0, len(o.approaches))
	for _, m := range o.approaches {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Plan != out[j].Plan {
			return out[i].Plan < out[j].Plan
		}
		return out[i].Direction < out[j].Direction
	})
	return out
}

// Reset clears all collected metrics
func (o *MetricsObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.ticks, o.pauses, o.resumes, o.completes = 0, 0, 0, 0
	o.pausedAt, o.pausedFor = make(map[uuid.UUID]time.Time), 0
	o.approaches = make(map[approachKey]*ApproachMetrics)
}
