// Package optimize derives green-time splits that minimize total waiting.
//
// Two problems are covered. PairedProblem splits one cycle between two
// opposing pairs by golden-section search on the total wait W(G). The
// AllocationProblem splits a cycle between four independent approaches by
// bisecting the shared Lagrange multiplier γ of the budget constraint.
//
// Both searches report a Status. Anything other than StatusConverged means the
// numbers in the result must not be used; Err turns such a status into a
// *traffic.ConvergenceError for callers that prefer error values.
package optimize

import (
	"fmt"

	"github.com/ardalan-sia/signal-timing/pkg/traffic"
)

// Status is the outcome of a search.
type Status int

const (
	StatusConverged Status = iota
	// No green split satisfies the stability condition on every approach.
	StatusInfeasible
	// The root bracket does not straddle zero.
	StatusNoSignChange
	// The iteration budget ran out before the tolerance was met.
	StatusMaxIterations
)

func (s Status) String() string {
	switch s {
	case StatusConverged:
		return "converged"
	case StatusInfeasible:
		return "infeasible"
	case StatusNoSignChange:
		return "no sign change in bracket"
	case StatusMaxIterations:
		return "iteration budget exhausted"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Converged reports whether the result may be trusted.
func (s Status) Converged() bool { return s == StatusConverged }

// Err is nil for StatusConverged and a *traffic.ConvergenceError otherwise.
func (s Status) Err(detail string) error {
	switch s {
	case StatusConverged:
		return nil
	case StatusInfeasible:
		return traffic.NewInfeasibleError(detail)
	}
	return traffic.NewNonConvergenceError(s.String(), detail)
}

// Point is one sample of a curve.
type Point struct {
	X float64
	Y float64
}
