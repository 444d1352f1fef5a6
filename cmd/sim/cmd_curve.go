package main

import (
	"fmt"
	"math"

	"github.com/ardalan-sia/signal-timing/pkg/optimize"
)

func (a *app) cmdCurve(args []string) int {
	which, args := splitScenario(args, scenarioPaired)
	flags, cf := a.newFlagSet("curve")
	points := flags.Int("points", 0, "samples (default from scenario)")
	low := flags.Float64("low", 0, "smallest γ for the residual curve (default 1e-3)")
	high := flags.Float64("high", 0, "largest γ for the residual curve (default 1e3)")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	sc, err := a.load(cf)
	if err != nil {
		return a.fail("curve", err)
	}
	if *points <= 0 {
		*points = sc.Optimizer.CurvePoints
	}

	var curve []optimize.Point
	var header string
	switch which {
	case scenarioPaired:
		curve = sc.PairedProblem().Curve(*points)
		header = "green_ns wait"
	case scenarioIndependent:
		curve = sc.AllocationProblem().ResidualCurve(*points, *low, *high)
		header = "gamma residual"
	default:
		return a.fail("curve", fmt.Errorf("unknown scenario %q (want %s or %s)", which, scenarioPaired, scenarioIndependent))
	}

	if *cf.jsonOut {
		// JSON has no infinity; infeasible samples become null.
		rows := make([][2]interface{}, len(curve))
		for i, p := range curve {
			var y interface{} = p.Y
			if math.IsInf(p.Y, 0) || math.IsNaN(p.Y) {
				y = nil
			}
			rows[i] = [2]interface{}{p.X, y}
		}
		a.printJSON(map[string]interface{}{"scenario": which, "points": rows})
		return 0
	}

	fmt.Fprintln(a.stdout, header)
	for _, p := range curve {
		fmt.Fprintf(a.stdout, "%.6g %.6g\n", p.X, p.Y)
	}
	return 0
}
