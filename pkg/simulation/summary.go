package simulation

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ardalan-sia/signal-timing/pkg/traffic"
)

// Trace accumulates per-tick queue lengths for every plan and direction.
type Trace struct {
	Plans      []string
	Directions []traffic.Direction
	lengths    [][][]float64 // plan, direction, tick
	green      [][]int       // plan, direction
	ticks      int
}

// NewTrace prepares a trace for the plans and directions of cfg.
func NewTrace(cfg DriverConfig) *Trace {
	tr := &Trace{Directions: append([]traffic.Direction(nil), cfg.Directions...)}
	for _, p := range cfg.Plans {
		tr.Plans = append(tr.Plans, p.Name)
		tr.lengths = append(tr.lengths, make([][]float64, len(cfg.Directions)))
		tr.green = append(tr.green, make([]int, len(cfg.Directions)))
	}
	return tr
}

// Record appends obs. It has the signature of a Run sink.
func (tr *Trace) Record(obs Observation) error {
	for i, po := range obs.Plans {
		if i >= len(tr.lengths) {
			break
		}
		for j, a := range po.Approaches {
			if j >= len(tr.lengths[i]) {
				break
			}
			tr.lengths[i][j] = append(tr.lengths[i][j], float64(a.Queue))
			if a.Green {
				tr.green[i][j]++
			}
		}
	}
	tr.ticks++
	return nil
}

// Ticks is the number of recorded observations.
func (tr *Trace) Ticks() int { return tr.ticks }

// Lengths returns the recorded queue lengths of one plan and direction.
func (tr *Trace) Lengths(plan int, dir int) []float64 {
	return append([]float64(nil), tr.lengths[plan][dir]...)
}

// Stat summarizes one direction of one plan over a trace.
type Stat struct {
	Plan       string
	Direction  traffic.Direction
	MeanQueue  float64
	MaxQueue   float64
	FinalQueue float64
	GreenShare float64
}

// Summarize reduces the trace to one Stat per plan and direction.
func (tr *Trace) Summarize() []Stat {
	var out []Stat
	for i, name := range tr.Plans {
		for j, d := range tr.Directions {
			s := Stat{Plan: name, Direction: d}
			if xs := tr.lengths[i][j]; len(xs) > 0 {
				s.MeanQueue = stat.Mean(xs, nil)
				s.MaxQueue = floats.Max(xs)
				s.FinalQueue = xs[len(xs)-1]
				s.GreenShare = float64(tr.green[i][j]) / float64(len(xs))
			}
			out = append(out, s)
		}
	}
	return out
}
