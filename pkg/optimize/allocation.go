package optimize

import (
	"fmt"
	"math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"

	"github.com/ardalan-sia/signal-timing/pkg/phase"
	"github.com/ardalan-sia/signal-timing/pkg/traffic"
)

const (
	defaultGammaLow  = 1e-6
	defaultGammaHigh = 1e6
	// nonPositiveGammaResidual is what Residual reports outside γ > 0.
	nonPositiveGammaResidual = 1e6
)

// DirectionRate is the arrival rate of one independently served approach.
type DirectionRate struct {
	Direction traffic.Direction
	Rate      float64
}

// AllocationProblem splits C − overhead between independent approaches. With a
// shared multiplier γ on the budget, each approach gets
//
//	G_d(γ) = (λ_d·C + sqrt(μ·C/γ)) / μ
//
// and γ is chosen so that Σ G_d(γ) = C − overhead. The sum falls monotonically
// in γ, so a bracketed bisection finds it.
type AllocationProblem struct {
	ServiceRate   float64
	Cycle         float64
	Overhead      float64 // clearance per cycle, 4×yellow for four phases
	Rates         []DirectionRate
	GammaLow      float64
	GammaHigh     float64
	Tolerance     float64 // relative width of the final γ bracket
	MaxIterations int
}

// Validate rejects parameters that cannot describe an intersection.
func (p AllocationProblem) Validate() error {
	if err := validateBudget(p.ServiceRate, p.Cycle, p.Overhead); err != nil {
		return err
	}
	if len(p.Rates) == 0 || len(p.Rates) > traffic.MaxDirections {
		return traffic.NewInvalidConfigError("rates", "need 1 to %d directions, got %d", traffic.MaxDirections, len(p.Rates))
	}
	if dup := lo.FindDuplicates(lo.Map(p.Rates, func(r DirectionRate, _ int) traffic.Direction { return r.Direction })); len(dup) > 0 {
		return traffic.NewInvalidConfigError("rates", "%v listed twice", dup[0])
	}
	for _, r := range p.Rates {
		if r.Rate < 0 || math.IsNaN(r.Rate) || math.IsInf(r.Rate, 0) {
			return traffic.NewInvalidConfigError("rates", "rate for %v must be a non-negative number, got %v", r.Direction, r.Rate)
		}
	}
	low, high := p.bracket()
	if !(low > 0) || !(high > low) {
		return traffic.NewInvalidConfigError("gamma", "bracket [%v, %v] must be positive and increasing", low, high)
	}
	return nil
}

func (p AllocationProblem) bracket() (float64, float64) {
	low, high := p.GammaLow, p.GammaHigh
	if low == 0 {
		low = defaultGammaLow
	}
	if high == 0 {
		high = defaultGammaHigh
	}
	return low, high
}

// Budget is the green time left after clearance, C − overhead.
func (p AllocationProblem) Budget() float64 { return p.Cycle - p.Overhead }

// Green is G_d(γ) for an approach with arrival rate lambda.
func (p AllocationProblem) Green(lambda, gamma float64) float64 {
	return (lambda*p.Cycle + math.Sqrt(p.ServiceRate*p.Cycle/gamma)) / p.ServiceRate
}

// Residual is Σ G_d(γ) − (C − overhead); a large positive constant for γ ≤ 0.
func (p AllocationProblem) Residual(gamma float64) float64 {
	if gamma <= 0 {
		return nonPositiveGammaResidual
	}
	total := lo.SumBy(p.Rates, func(r DirectionRate) float64 { return p.Green(r.Rate, gamma) })
	return total - p.Budget()
}

// Allocation is the green time of one approach.
type Allocation struct {
	Direction traffic.Direction
	Green     float64
}

// AllocationResult holds the split and the multiplier that produced it.
// Numbers are only meaningful when Status is StatusConverged.
type AllocationResult struct {
	Allocations []Allocation
	TotalGreen  float64
	TotalWait   float64
	Gamma       float64
	Iterations  int
	Status      Status
}

// Converged reports whether the result may be trusted.
func (r AllocationResult) Converged() bool { return r.Status.Converged() }

// Err reports a non-converged result as an error.
func (r AllocationResult) Err() error {
	return r.Status.Err("lagrange multiplier search")
}

// Green returns the allocation for d.
func (r AllocationResult) Green(d traffic.Direction) (float64, bool) {
	a, ok := lo.Find(r.Allocations, func(a Allocation) bool { return a.Direction == d })
	return a.Green, ok
}

// Optimize bisects log γ over the bracket. A bracket without a sign change or
// an exhausted iteration budget is reported through Status, not as an error.
func (p AllocationProblem) Optimize() (AllocationResult, error) {
	if err := p.Validate(); err != nil {
		return AllocationResult{}, err
	}
	low, high := p.bracket()
	root := BisectLog(p.Residual, low, high, p.Tolerance, p.MaxIterations)
	res := AllocationResult{Gamma: root.Root, Iterations: root.Iterations, Status: root.Status}
	if !root.Status.Converged() {
		return res, nil
	}

	res.Allocations = lo.Map(p.Rates, func(r DirectionRate, _ int) Allocation {
		return Allocation{Direction: r.Direction, Green: p.Green(r.Rate, root.Root)}
	})
	res.TotalGreen = lo.SumBy(res.Allocations, func(a Allocation) float64 { return a.Green })
	res.TotalWait = lo.SumBy(p.Rates, func(r DirectionRate) float64 {
		return p.Cycle / (p.ServiceRate*p.Green(r.Rate, root.Root) - r.Rate*p.Cycle)
	})
	return res, nil
}

// ResidualCurve samples Residual at n log-spaced γ in [low, high]; zeros
// select the default validation range [1e-3, 1e3].
func (p AllocationProblem) ResidualCurve(n int, low, high float64) []Point {
	if n < 2 {
		n = 2
	}
	if low <= 0 {
		low = 1e-3
	}
	if high <= low {
		high = 1e3
	}
	gammas := floats.LogSpan(make([]float64, n), low, high)
	return lo.Map(gammas, func(g float64, _ int) Point {
		return Point{X: g, Y: p.Residual(g)}
	})
}

// Schedule builds the one-direction-at-a-time plan for a converged result,
// in allocation order, with a clearance after each green.
func (r AllocationResult) Schedule(clearance float64) (*phase.Schedule, error) {
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("cannot build schedule: %w", err)
	}
	greens := lo.Map(r.Allocations, func(a Allocation, _ int) phase.Green {
		return phase.Green{Direction: a.Direction, Duration: a.Green}
	})
	cycle := r.TotalGreen + float64(len(greens))*clearance
	return phase.Independent(greens, clearance, cycle)
}
