package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ardalan-sia/signal-timing/pkg/observers"
	"github.com/ardalan-sia/signal-timing/pkg/simulation"
)

func (a *app) cmdReplicate(args []string) int {
	scenario, args := splitScenario(args, scenarioPaired)
	flags, cf := a.newFlagSet("replicate")
	replications := flags.Int("replications", 0, "number of replications (default from scenario)")
	ticks := flags.Int("ticks", 0, "ticks per replication (default from scenario)")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	sc, err := a.load(cf)
	if err != nil {
		return a.fail("replicate", err)
	}
	cfg, err := driverConfig(sc, scenario)
	if err != nil {
		return a.fail("replicate", err)
	}
	log, err := a.logger(cf)
	if err != nil {
		return a.fail("replicate", err)
	}
	if *replications <= 0 {
		*replications = sc.Replications
	}
	if *ticks <= 0 {
		*ticks = sc.Ticks
	}

	sim, err := simulation.NewSimulator(cfg, *ticks)
	if err != nil {
		return a.fail("replicate", err)
	}
	metrics := observers.NewMetricsObserver()
	for i := 0; i < *replications; i++ {
		if _, err := sim.RegisterReplication(sc.Seed+uint64(i),
			simulation.WithObserver(log),
			simulation.WithObserver(metrics)); err != nil {
			return a.fail("replicate", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := sim.Run(ctx); err != nil {
		return a.fail("replicate", err)
	}
	log.Logf(observers.LogInfo, "%d replications finished, %d ticks observed", metrics.Completed(), metrics.Ticks())

	aggs := sim.Aggregate()
	if *cf.jsonOut {
		type row struct {
			Plan         string  `json:"plan"`
			Direction    string  `json:"direction"`
			MeanQueue    float64 `json:"mean_queue"`
			StdDev       float64 `json:"stddev"`
			MaxQueue     float64 `json:"max_queue"`
			Replications int     `json:"replications"`
		}
		rows := make([]row, len(aggs))
		for i, ag := range aggs {
			rows[i] = row{ag.Plan, ag.Direction.String(), ag.MeanQueue, ag.StdDev, ag.MaxQueue, ag.Replications}
		}
		a.printJSON(map[string]interface{}{
			"scenario":     scenario,
			"ticks":        *ticks,
			"replications": *replications,
			"seed":         sc.Seed,
			"approaches":   rows,
		})
		return 0
	}

	fmt.Fprintf(a.stdout, "%s scenario, %d replications of %d ticks (seeds %d..%d)\n",
		scenario, *replications, *ticks, sc.Seed, sc.Seed+uint64(*replications-1))
	for _, ag := range aggs {
		fmt.Fprintf(a.stdout, "  %-10s %-2s mean=%7.3f sd=%6.3f max=%4.0f\n",
			ag.Plan, ag.Direction, ag.MeanQueue, ag.StdDev, ag.MaxQueue)
	}
	return 0
}
