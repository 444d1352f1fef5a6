package optimize

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ardalan-sia/signal-timing/pkg/phase"
	"github.com/ardalan-sia/signal-timing/pkg/traffic"
)

// defaultEpsilon insets the search from the ends of the open green interval.
const defaultEpsilon = 1e-6

// PairedProblem splits one cycle between two opposing pairs, A and B:
//
//	W(G_A) = C/(μ·G_A − λ_A·C) + C/(μ·G_B − λ_B·C),  G_B = C − overhead − G_A
type PairedProblem struct {
	ServiceRate   float64 // μ, vehicles per unit of green
	Cycle         float64 // C
	Overhead      float64 // clearance per cycle, 2×yellow for two phases
	RateA         float64 // λ_A, arrivals per unit time
	RateB         float64 // λ_B
	Epsilon       float64
	Tolerance     float64
	MaxIterations int
}

// Validate rejects parameters that cannot describe an intersection.
func (p PairedProblem) Validate() error {
	if err := validateBudget(p.ServiceRate, p.Cycle, p.Overhead); err != nil {
		return err
	}
	for name, r := range map[string]float64{"rate_a": p.RateA, "rate_b": p.RateB} {
		if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return traffic.NewInvalidConfigError(name, "must be a non-negative number, got %v", r)
		}
	}
	if p.Epsilon < 0 {
		return traffic.NewInvalidConfigError("epsilon", "must not be negative, got %v", p.Epsilon)
	}
	return nil
}

func validateBudget(mu, cycle, overhead float64) error {
	if !(mu > 0) || math.IsInf(mu, 0) {
		return traffic.NewInvalidConfigError("service_rate", "must be positive, got %v", mu)
	}
	if !(cycle > 0) || math.IsInf(cycle, 0) {
		return traffic.NewInvalidConfigError("cycle", "must be positive, got %v", cycle)
	}
	if overhead < 0 || !(overhead < cycle) {
		return traffic.NewInvalidConfigError("overhead", "must be in [0, %v), got %v", cycle, overhead)
	}
	return nil
}

// Budget is the green time left after clearance, C − overhead.
func (p PairedProblem) Budget() float64 { return p.Cycle - p.Overhead }

// Wait evaluates W at gA. Splits that violate the stability condition on
// either pair cost +Inf.
func (p PairedProblem) Wait(gA float64) float64 {
	gB := p.Budget() - gA
	if gA <= 0 || gB <= 0 {
		return math.Inf(1)
	}
	dA := p.ServiceRate*gA - p.RateA*p.Cycle
	dB := p.ServiceRate*gB - p.RateB*p.Cycle
	if dA <= 0 || dB <= 0 {
		return math.Inf(1)
	}
	return p.Cycle/dA + p.Cycle/dB
}

// Feasible returns the open interval of G_A where both denominators of W are positive.
func (p PairedProblem) Feasible() (lo, hi float64) {
	return p.RateA * p.Cycle / p.ServiceRate, p.Budget() - p.RateB*p.Cycle/p.ServiceRate
}

// PairedResult is the optimal split. Numbers are only meaningful when
// Status is StatusConverged.
type PairedResult struct {
	GreenA     float64
	GreenB     float64
	MinWait    float64
	Iterations int
	Status     Status
}

// Err reports a non-converged result as an error.
func (r PairedResult) Err() error {
	return r.Status.Err("paired green split")
}

// Optimize minimizes W over the feasible part of (ε, C − overhead − ε).
func (p PairedProblem) Optimize() (PairedResult, error) {
	if err := p.Validate(); err != nil {
		return PairedResult{}, err
	}
	eps := p.Epsilon
	if eps == 0 {
		eps = defaultEpsilon
	}

	lo, hi := eps, p.Budget()-eps
	flo, fhi := p.Feasible()
	lo = math.Max(lo, flo+eps)
	hi = math.Min(hi, fhi-eps)
	if !(lo < hi) {
		return PairedResult{GreenA: math.NaN(), GreenB: math.NaN(), MinWait: math.Inf(1), Status: StatusInfeasible}, nil
	}

	m := GoldenSection(p.Wait, lo, hi, p.Tolerance, p.MaxIterations)
	return PairedResult{
		GreenA:     m.X,
		GreenB:     p.Budget() - m.X,
		MinWait:    m.F,
		Iterations: m.Iterations,
		Status:     m.Status,
	}, nil
}

// Curve samples W at n evenly spaced G_A over [1, C − overhead − 1] for
// validation plots. Infeasible samples are +Inf.
func (p PairedProblem) Curve(n int) []Point {
	if n < 2 {
		n = 2
	}
	lo, hi := 1.0, p.Budget()-1
	if !(lo < hi) {
		lo, hi = defaultEpsilon, p.Budget()-defaultEpsilon
	}
	xs := floats.Span(make([]float64, n), lo, hi)
	out := make([]Point, n)
	for i, x := range xs {
		out[i] = Point{X: x, Y: p.Wait(x)}
	}
	return out
}

// Schedule builds the two-phase plan for a converged result. The cycle is
// GreenA + GreenB + 2×clearance.
func (r PairedResult) Schedule(first, second []traffic.Direction, clearance float64) (*phase.Schedule, error) {
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("cannot build schedule: %w", err)
	}
	return phase.Paired(first, r.GreenA, second, r.GreenB, clearance, r.GreenA+r.GreenB+2*clearance)
}
