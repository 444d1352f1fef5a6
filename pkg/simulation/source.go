package simulation

import (
	"math/rand/v2"
)

// Source yields independent uniform draws in [0, 1).
type Source interface {
	Float64() float64
}

// NewSource returns a seeded PCG stream. Equal seeds give equal streams.
func NewSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Replay returns the given draws in order and wraps around when exhausted.
type Replay struct {
	Draws []float64
	pos   int
}

// NewReplay builds a Replay over draws.
func NewReplay(draws ...float64) *Replay {
	return &Replay{Draws: append([]float64(nil), draws...)}
}

// Float64 implements Source.
func (r *Replay) Float64() float64 {
	if len(r.Draws) == 0 {
		return 0
	}
	u := r.Draws[r.pos%len(r.Draws)]
	r.pos++
	return u
}

// Consumed is the number of draws handed out so far.
func (r *Replay) Consumed() int { return r.pos }
