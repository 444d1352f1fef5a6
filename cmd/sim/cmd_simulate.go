package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/ardalan-sia/signal-timing/pkg/frame"
	"github.com/ardalan-sia/signal-timing/pkg/observers"
	"github.com/ardalan-sia/signal-timing/pkg/simulation"
)

// interactivePacing applies when --interactive is set and no interval is configured.
const interactivePacing = 100 * time.Millisecond

func (a *app) cmdSimulate(args []string) int {
	scenario, args := splitScenario(args, scenarioPaired)
	flags, cf := a.newFlagSet("simulate")
	format := flags.String("format", "text", "tick output: text, json or msgpack")
	interactive := flags.Bool("interactive", false, "read 'a' (pause/resume) and 'q' (stop) from stdin")
	ticks := flags.Int("ticks", 0, "ticks to run (default from scenario)")
	seed := flags.Uint64("seed", 0, "random seed (default from scenario)")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if *cf.jsonOut {
		*format = "json"
	}

	sc, err := a.load(cf)
	if err != nil {
		return a.fail("simulate", err)
	}
	cfg, err := driverConfig(sc, scenario)
	if err != nil {
		return a.fail("simulate", err)
	}
	log, err := a.logger(cf)
	if err != nil {
		return a.fail("simulate", err)
	}
	if *ticks <= 0 {
		*ticks = sc.Ticks
	}
	seedSet := false
	flags.Visit(func(f *flag.Flag) { seedSet = seedSet || f.Name == "seed" })
	if !seedSet {
		*seed = sc.Seed
	}
	interval := sc.Interval
	if *interactive && interval == 0 {
		interval = interactivePacing
	}

	sink, err := a.tickSink(*format)
	if err != nil {
		return a.fail("simulate", err)
	}

	d, err := simulation.NewDriver(cfg, simulation.NewSource(*seed),
		simulation.WithInterval(interval),
		simulation.WithObserver(log))
	if err != nil {
		return a.fail("simulate", err)
	}
	log.Logf(observers.LogInfo, "run %s: %s scenario, %d ticks, seed %d", d.ID(), scenario, *ticks, *seed)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if *interactive {
		go a.watchKeys(d, cancel)
	}

	trace := simulation.NewTrace(d.Config())
	err = d.Run(ctx, *ticks, func(obs simulation.Observation) error {
		trace.Record(obs)
		return sink(obs)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return a.fail("simulate", err)
	}

	if *format == "text" {
		a.printStats(trace.Summarize())
	}
	return 0
}

// tickSink returns the per-tick writer for format.
func (a *app) tickSink(format string) (func(simulation.Observation) error, error) {
	switch format {
	case "text":
		return func(obs simulation.Observation) error {
			_, err := fmt.Fprintln(a.stdout, formatTick(obs))
			return err
		}, nil
	case "json":
		enc := json.NewEncoder(a.stdout)
		return func(obs simulation.Observation) error {
			return enc.Encode(frame.FromObservation(obs))
		}, nil
	case "msgpack":
		return frame.NewEncoder(a.stdout).Encode, nil
	}
	return nil, fmt.Errorf("unknown format %q (want text, json or msgpack)", format)
}

// watchKeys toggles pause on "a" and stops the run on "q". At end of input
// nothing can resume the driver any more, so a paused run is resumed and
// left to finish.
func (a *app) watchKeys(d *simulation.Driver, cancel func()) {
	scanner := bufio.NewScanner(a.stdin)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "a":
			d.TogglePause()
		case "q":
			cancel()
			return
		}
	}
	d.Resume()
}

// formatTick renders one line: tick, then each plan with its phase and queues.
// A trailing * marks a green approach.
func formatTick(obs simulation.Observation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "tick %4d", obs.Tick)
	for _, p := range obs.Plans {
		fmt.Fprintf(&b, " | %s[%d]", p.Name, p.Phase)
		for _, ap := range p.Approaches {
			mark := ""
			if ap.Green {
				mark = "*"
			}
			fmt.Fprintf(&b, " %s%s=%d", ap.Direction, mark, ap.Queue)
		}
	}
	return b.String()
}

func (a *app) printStats(stats []simulation.Stat) {
	fmt.Fprintln(a.stdout, "summary:")
	for _, s := range stats {
		fmt.Fprintf(a.stdout, "  %-10s %-2s mean=%7.3f max=%4.0f final=%4.0f green=%5.1f%%\n",
			s.Plan, s.Direction, s.MeanQueue, s.MaxQueue, s.FinalQueue, 100*s.GreenShare)
	}
}
