package main

import (
	"fmt"

	"github.com/ardalan-sia/signal-timing/pkg/config"
	"github.com/ardalan-sia/signal-timing/pkg/optimize"
	"github.com/ardalan-sia/signal-timing/pkg/traffic"
)

// exitNotConverged is returned when any requested search failed to converge.
const exitNotConverged = 2

func (a *app) cmdOptimize(args []string) int {
	which, args := splitScenario(args, "all")
	flags, cf := a.newFlagSet("optimize")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if which != "all" && which != scenarioPaired && which != scenarioIndependent {
		return a.fail("optimize", fmt.Errorf("unknown scenario %q (want %s, %s or all)", which, scenarioPaired, scenarioIndependent))
	}

	sc, err := a.load(cf)
	if err != nil {
		return a.fail("optimize", err)
	}

	report := map[string]interface{}{}
	converged := true
	if which != scenarioIndependent {
		res, err := sc.PairedProblem().Optimize()
		if err != nil {
			return a.fail("optimize", err)
		}
		converged = converged && res.Status.Converged()
		report[scenarioPaired] = pairedReport(res)
		if !*cf.jsonOut {
			a.printPaired(sc, res)
		}
	}
	if which != scenarioPaired {
		res, err := sc.AllocationProblem().Optimize()
		if err != nil {
			return a.fail("optimize", err)
		}
		converged = converged && res.Converged()
		report[scenarioIndependent] = allocationReport(res)
		if !*cf.jsonOut {
			a.printAllocation(res)
		}
	}

	if *cf.jsonOut {
		a.printJSON(report)
	}
	if !converged {
		return exitNotConverged
	}
	return 0
}

func pairedReport(res optimize.PairedResult) map[string]interface{} {
	out := map[string]interface{}{
		"status":     res.Status.String(),
		"converged":  res.Status.Converged(),
		"iterations": res.Iterations,
	}
	if res.Status.Converged() {
		out["green_ns"] = res.GreenA
		out["green_ew"] = res.GreenB
		out["min_wait"] = res.MinWait
	}
	return out
}

func allocationReport(res optimize.AllocationResult) map[string]interface{} {
	out := map[string]interface{}{
		"status":     res.Status.String(),
		"converged":  res.Converged(),
		"iterations": res.Iterations,
	}
	if res.Converged() {
		greens := make(map[string]float64, len(res.Allocations))
		for _, al := range res.Allocations {
			greens[al.Direction.String()] = al.Green
		}
		out["greens"] = greens
		out["total_green"] = res.TotalGreen
		out["total_wait"] = res.TotalWait
		out["gamma"] = res.Gamma
	}
	return out
}

func (a *app) printPaired(sc *config.Scenario, res optimize.PairedResult) {
	p := sc.PairedProblem()
	fmt.Fprintf(a.stdout, "paired: %s (λ_NS=%.3f λ_EW=%.3f μ=%g C=%g)\n", res.Status, p.RateA, p.RateB, p.ServiceRate, p.Cycle)
	if !res.Status.Converged() {
		return
	}
	fmt.Fprintf(a.stdout, "  %s green = %.2f\n", traffic.NorthSouth, res.GreenA)
	fmt.Fprintf(a.stdout, "  %s green = %.2f\n", traffic.EastWest, res.GreenB)
	fmt.Fprintf(a.stdout, "  min wait = %.4f  (%d iterations)\n", res.MinWait, res.Iterations)
}

func (a *app) printAllocation(res optimize.AllocationResult) {
	fmt.Fprintf(a.stdout, "independent: %s\n", res.Status)
	if !res.Converged() {
		return
	}
	for _, al := range res.Allocations {
		fmt.Fprintf(a.stdout, "  %-2s green = %.2f\n", al.Direction, al.Green)
	}
	fmt.Fprintf(a.stdout, "  total green = %.3f  γ = %.6g  (%d iterations)\n", res.TotalGreen, res.Gamma, res.Iterations)
}
