package simulation

import (
	"github.com/samber/lo"

	"github.com/ardalan-sia/signal-timing/pkg/traffic"
)

// Approach is the observable state of one direction after a tick.
type Approach struct {
	Direction traffic.Direction
	Queue     int
	Green     bool
}

// Arrivals draws exactly one uniform per direction, in order, and reports
// whether a vehicle arrived (u < rate*dt). Directions without a rate still
// consume a draw so streams stay aligned across configurations.
func Arrivals(dirs []traffic.Direction, rates map[traffic.Direction]float64, dt float64, src Source) []bool {
	out := make([]bool, len(dirs))
	for i, d := range dirs {
		out[i] = src.Float64() < rates[d]*dt
	}
	return out
}

// Apply resolves one tick on queues: every arrival first, then departures of
// up to capacity vehicles on each green direction.
func Apply(queues *traffic.QueueMap, arrived []bool, green []traffic.Direction, capacity float64) []Approach {
	dirs := queues.Directions()
	for i, d := range dirs {
		if i < len(arrived) && arrived[i] {
			queues.Arrive(d)
		}
	}
	for _, d := range dirs {
		if lo.Contains(green, d) {
			queues.Serve(d, capacity)
		}
	}
	return lo.Map(dirs, func(d traffic.Direction, _ int) Approach {
		return Approach{Direction: d, Queue: queues.Len(d), Green: lo.Contains(green, d)}
	})
}

// Step advances queues by one tick with its own draws.
func Step(queues *traffic.QueueMap, green []traffic.Direction, rates map[traffic.Direction]float64, serviceRate, dt float64, src Source) []Approach {
	arrived := Arrivals(queues.Directions(), rates, dt, src)
	return Apply(queues, arrived, green, serviceRate*dt)
}
