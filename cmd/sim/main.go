// Command sim compares fixed and optimized signal timing at a four-way
// intersection and derives the optimized green splits.
package main

import (
	"fmt"
	"os"
)

const version = "0.3.0"

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	os.Exit(a.run(os.Args[1:]))
}

func (a *app) run(args []string) int {
	if len(args) < 1 {
		a.printUsage()
		return 1
	}

	switch args[0] {
	case "--help", "-h", "help":
		a.printUsage()
		return 0
	case "--version", "-v", "version":
		fmt.Fprintln(a.stdout, "sim", version)
		return 0

	case "simulate", "sim":
		return a.cmdSimulate(args[1:])
	case "replicate", "rep":
		return a.cmdReplicate(args[1:])
	case "optimize", "opt":
		return a.cmdOptimize(args[1:])
	case "curve":
		return a.cmdCurve(args[1:])
	case "config":
		return a.cmdConfig(args[1:])

	default:
		fmt.Fprintf(a.stderr, "sim: unknown command %q\n", args[0])
		fmt.Fprintln(a.stderr, "Run 'sim --help' for usage.")
		return 1
	}
}

func (a *app) printUsage() {
	fmt.Fprint(a.stdout, `sim — signal timing at a four-way intersection

Queues grow by Bernoulli arrivals and drain at the service rate while green.
Every plan in a scenario sees the same arrivals.

Usage:
  sim <command> [scenario] [flags]

Scenarios:
  paired        NS and EW pairs, real 60/42 vs optimized split (default)
  independent   four approaches, paired real plan vs one-at-a-time plan

Commands:
  simulate [scenario] [--format text|json|msgpack] [--interactive]
                            Run one driver and stream every tick
  replicate [scenario] [--replications N]
                            Monte Carlo replications, mean queue per approach
  optimize [paired|independent|all]
                            Golden-section split (paired) and Lagrange split (independent)
  curve [paired|independent] [--points N]
                            W(G) or the γ residual, for validation plots
  config                    Print the effective scenario as YAML
  version                   Print the version

Aliases:
  sim = simulate, rep = replicate, opt = optimize

Environment:
  SIGNAL_CONFIG         Scenario YAML file (same as --config)
  SIGNAL_SEED           Random seed
  SIGNAL_TICKS          Ticks per run
  SIGNAL_REPLICATIONS   Replications for 'replicate'
  SIGNAL_INTERVAL       Tick pacing, e.g. 100ms
A .env file in the working directory is read first.

With --interactive, type 'a' and Enter to pause or resume, 'q' to stop.
All report commands support --json.

Exit codes:
  0  success
  1  error
  2  optimizer did not converge
`)
}
