package simulation

import (
	"math"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/ardalan-sia/signal-timing/pkg/phase"
	"github.com/ardalan-sia/signal-timing/pkg/traffic"
)

// Plan is one signal timing policy run against the shared arrivals.
type Plan struct {
	Name        string
	Schedule    *phase.Schedule
	ServiceRate float64 // vehicles per tick while green
}

// DriverConfig describes the intersection a Driver advances.
type DriverConfig struct {
	Directions []traffic.Direction
	Rates      map[traffic.Direction]float64 // arrivals per tick
	Plans      []Plan
	TickLength float64 // dt, defaults to 1
}

// Validate rejects configurations before any tick runs.
func (c *DriverConfig) Validate() error {
	if len(c.Directions) == 0 || len(c.Directions) > traffic.MaxDirections {
		return traffic.NewInvalidConfigError("directions", "need 1 to %d directions, got %d", traffic.MaxDirections, len(c.Directions))
	}
	if dup := lo.FindDuplicates(c.Directions); len(dup) > 0 {
		return traffic.NewInvalidConfigError("directions", "%v listed twice", dup[0])
	}
	for _, d := range c.Directions {
		if !d.Valid() {
			return traffic.NewInvalidConfigError("directions", "unknown direction %d", int(d))
		}
		r := c.Rates[d]
		if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return traffic.NewInvalidConfigError("rates", "rate for %v must be a non-negative number, got %v", d, r)
		}
	}
	if c.TickLength < 0 || math.IsNaN(c.TickLength) {
		return traffic.NewInvalidConfigError("tick_length", "must not be negative, got %v", c.TickLength)
	}
	if len(c.Plans) == 0 {
		return traffic.NewInvalidConfigError("plans", "at least one plan is required")
	}
	if dup := lo.FindDuplicates(lo.Map(c.Plans, func(p Plan, _ int) string { return p.Name })); len(dup) > 0 {
		return traffic.NewInvalidConfigError("plans", "plan %q listed twice", dup[0])
	}
	for _, p := range c.Plans {
		if p.Schedule == nil {
			return traffic.NewInvalidConfigError("plans", "plan %q has no schedule", p.Name)
		}
		if !(p.ServiceRate > 0) || math.IsInf(p.ServiceRate, 0) {
			return traffic.NewInvalidConfigError("service_rate", "plan %q: must be positive, got %v", p.Name, p.ServiceRate)
		}
		if missing := lo.Without(p.Schedule.Directions(), c.Directions...); len(missing) > 0 {
			return traffic.NewInvalidConfigError("plans", "plan %q grants green to untracked %v", p.Name, missing)
		}
	}
	return nil
}

func (c *DriverConfig) dt() float64 {
	if c.TickLength == 0 {
		return 1
	}
	return c.TickLength
}

// PlanObservation is the state of one plan after a tick. Phase is the index
// of the active schedule entry, -1 if none matched.
type PlanObservation struct {
	Name       string
	Phase      int
	Approaches []Approach
}

// Observation is what the driver hands to renderers each tick.
type Observation struct {
	RunID uuid.UUID
	Tick  int
	Plans []PlanObservation
}

// Plan returns the observation of the named plan.
func (o Observation) Plan(name string) (PlanObservation, bool) {
	return lo.Find(o.Plans, func(p PlanObservation) bool { return p.Name == name })
}
