// Package phase maps cycle-relative time to the approaches holding green.
package phase

import (
	"math"

	"github.com/samber/lo"

	"github.com/ardalan-sia/signal-timing/pkg/traffic"
)

// cycleTolerance bounds the relative mismatch between the entry sum and the declared cycle.
const cycleTolerance = 1e-9

// Entry is one portion of the cycle. An entry without green directions is a clearance.
type Entry struct {
	Green    []traffic.Direction
	Duration float64
}

// Clearance reports whether no direction holds green during e.
func (e Entry) Clearance() bool { return len(e.Green) == 0 }

// Schedule is an immutable repeating sequence of entries.
type Schedule struct {
	entries []Entry
	cycle   float64
	dirs    []traffic.Direction
}

// New validates entries against the declared cycle length.
func New(entries []Entry, cycle float64) (*Schedule, error) {
	if !(cycle > 0) || math.IsInf(cycle, 0) {
		return nil, traffic.NewInvalidConfigError("cycle", "must be positive and finite, got %v", cycle)
	}
	if len(entries) == 0 {
		return nil, traffic.NewInvalidConfigError("entries", "schedule has no entries")
	}

	var sum float64
	copied := make([]Entry, len(entries))
	for i, e := range entries {
		if !(e.Duration > 0) || math.IsInf(e.Duration, 0) {
			return nil, traffic.NewInvalidConfigError("entries", "entry %d has duration %v", i, e.Duration)
		}
		for _, d := range e.Green {
			if !d.Valid() {
				return nil, traffic.NewInvalidConfigError("entries", "entry %d grants green to %v", i, d)
			}
		}
		if dup := lo.FindDuplicates(e.Green); len(dup) > 0 {
			return nil, traffic.NewInvalidConfigError("entries", "entry %d lists %v twice", i, dup[0])
		}
		sum += e.Duration
		copied[i] = Entry{Green: append([]traffic.Direction(nil), e.Green...), Duration: e.Duration}
	}

	if math.Abs(sum-cycle) > cycleTolerance*math.Max(1, cycle) {
		return nil, traffic.NewInvalidConfigError("cycle", "entries sum to %v, declared cycle is %v", sum, cycle)
	}

	dirs := lo.Uniq(lo.FlatMap(copied, func(e Entry, _ int) []traffic.Direction { return e.Green }))
	if len(dirs) > traffic.MaxDirections {
		return nil, traffic.NewInvalidConfigError("entries", "%d directions exceed the limit of %d", len(dirs), traffic.MaxDirections)
	}

	return &Schedule{entries: copied, cycle: cycle, dirs: dirs}, nil
}

// Cycle returns the cycle length C.
func (s *Schedule) Cycle() float64 { return s.cycle }

// Entries returns a copy of the schedule entries.
func (s *Schedule) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = Entry{Green: append([]traffic.Direction(nil), e.Green...), Duration: e.Duration}
	}
	return out
}

// Directions lists every direction that is green somewhere in the cycle, in first-seen order.
func (s *Schedule) Directions() []traffic.Direction {
	return append([]traffic.Direction(nil), s.dirs...)
}

// Active returns the entry covering t mod C. Windows are half-open [start, end)
// and the first matching entry wins. ok is false only when floating point
// leaves t just past the last accumulated end; callers treat that as all stop.
func (s *Schedule) Active(t float64) (index int, entry Entry, ok bool) {
	tau := math.Mod(t, s.cycle)
	if tau < 0 {
		tau += s.cycle
	}
	var start float64
	for i, e := range s.entries {
		end := start + e.Duration
		if start <= tau && tau < end {
			return i, e, true
		}
		start = end
	}
	return -1, Entry{}, false
}

// Green returns the directions holding green at t, empty during clearance.
func (s *Schedule) Green(t float64) []traffic.Direction {
	_, e, ok := s.Active(t)
	if !ok {
		return nil
	}
	return append([]traffic.Direction(nil), e.Green...)
}

// IsGreen reports whether d holds green at t.
func (s *Schedule) IsGreen(d traffic.Direction, t float64) bool {
	_, e, ok := s.Active(t)
	return ok && lo.Contains(e.Green, d)
}
