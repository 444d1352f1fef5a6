package optimize

import (
	"math"
)

const (
	defaultTolerance     = 1e-10
	defaultMaxIterations = 200
)

// invPhi is 1/φ, the golden-section shrink factor.
var invPhi = (math.Sqrt(5) - 1) / 2

// MinResult is the outcome of a scalar minimization.
type MinResult struct {
	X          float64
	F          float64
	Iterations int
	Status     Status
}

// GoldenSection minimizes f on [lo, hi]. f must be unimodal there; +Inf is a
// valid value and simply loses every comparison. The bracket shrinks by 1/φ
// per evaluation until it is narrower than tol, so convergence takes about
// log(tol/(hi-lo))/log(1/φ) iterations.
func GoldenSection(f func(float64) float64, lo, hi, tol float64, maxIter int) MinResult {
	if tol <= 0 {
		tol = defaultTolerance
	}
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	if lo > hi {
		lo, hi = hi, lo
	}

	a, b := lo, hi
	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc, fd := f(c), f(d)

	iter := 0
	for ; b-a > tol && iter < maxIter; iter++ {
		if fc < fd {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			fc = f(c)
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			fd = f(d)
		}
	}

	res := MinResult{X: (a + b) / 2, Iterations: iter, Status: StatusConverged}
	res.F = f(res.X)
	if fc < res.F {
		res.X, res.F = c, fc
	}
	if fd < res.F {
		res.X, res.F = d, fd
	}
	if b-a > tol {
		res.Status = StatusMaxIterations
	}
	if math.IsInf(res.F, 1) || math.IsNaN(res.F) {
		res.Status = StatusInfeasible
	}
	return res
}

// RootResult is the outcome of a root search.
type RootResult struct {
	Root       float64
	Residual   float64
	Iterations int
	Status     Status
}

// Bisect finds a zero of f in [lo, hi] by halving the bracket until it is
// narrower than tol. f(lo) and f(hi) must differ in sign.
func Bisect(f func(float64) float64, lo, hi, tol float64, maxIter int) RootResult {
	return bisect(f, lo, hi, tol, maxIter,
		func(a, b float64) float64 { return a + (b-a)/2 },
		func(a, b float64) float64 { return math.Abs(b - a) })
}

// BisectLog bisects on log x for brackets spanning orders of magnitude. Both
// ends must be positive; tol bounds the relative bracket width hi/lo - 1.
func BisectLog(f func(float64) float64, lo, hi, tol float64, maxIter int) RootResult {
	if !(lo > 0) || !(hi > 0) {
		return RootResult{Root: math.NaN(), Residual: math.NaN(), Status: StatusNoSignChange}
	}
	return bisect(f, lo, hi, tol, maxIter,
		func(a, b float64) float64 { return math.Sqrt(a) * math.Sqrt(b) },
		func(a, b float64) float64 { return math.Max(a, b)/math.Min(a, b) - 1 })
}

func bisect(f func(float64) float64, lo, hi, tol float64, maxIter int, mid, width func(a, b float64) float64) RootResult {
	if tol <= 0 {
		tol = defaultTolerance
	}
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	flo, fhi := f(lo), f(hi)
	switch {
	case flo == 0:
		return RootResult{Root: lo, Status: StatusConverged}
	case fhi == 0:
		return RootResult{Root: hi, Status: StatusConverged}
	case math.IsNaN(flo) || math.IsNaN(fhi) || math.Signbit(flo) == math.Signbit(fhi):
		return RootResult{Root: math.NaN(), Residual: math.NaN(), Status: StatusNoSignChange}
	}

	var m, fm float64
	for iter := 1; iter <= maxIter; iter++ {
		m = mid(lo, hi)
		fm = f(m)
		if fm == 0 {
			return RootResult{Root: m, Residual: fm, Iterations: iter, Status: StatusConverged}
		}
		if math.Signbit(fm) == math.Signbit(flo) {
			lo, flo = m, fm
		} else {
			hi = m
		}
		if width(lo, hi) <= tol {
			m = mid(lo, hi)
			return RootResult{Root: m, Residual: f(m), Iterations: iter, Status: StatusConverged}
		}
	}
	return RootResult{Root: m, Residual: fm, Iterations: maxIter, Status: StatusMaxIterations}
}
