package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/ardalan-sia/signal-timing/pkg/config"
	"github.com/ardalan-sia/signal-timing/pkg/observers"
	"github.com/ardalan-sia/signal-timing/pkg/simulation"
)

const (
	scenarioPaired      = "paired"
	scenarioIndependent = "independent"
)

// app holds the streams shared by all subcommands.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{stdin: stdin, stdout: stdout, stderr: stderr}
}

// commonFlags are accepted by every scenario command.
type commonFlags struct {
	config   *string
	logLevel *string
	jsonOut  *bool
}

func (a *app) newFlagSet(name string) (*flag.FlagSet, commonFlags) {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	return flags, commonFlags{
		config:   flags.String("config", "", "scenario YAML (default $SIGNAL_CONFIG)"),
		logLevel: flags.String("log-level", "warn", "error, warn, info or debug"),
		jsonOut:  flags.Bool("json", false, "JSON output"),
	}
}

// splitScenario takes a leading positional scenario name so that both
// "simulate independent --json" and "simulate --json" parse.
func splitScenario(args []string, def string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return def, args
}

func (a *app) load(cf commonFlags) (*config.Scenario, error) {
	return config.Load(*cf.config)
}

func (a *app) logger(cf commonFlags) (*observers.LoggingObserver, error) {
	level, err := observers.ParseLogLevel(*cf.logLevel)
	if err != nil {
		return nil, err
	}
	log := observers.NewLoggingObserver(level, "sim")
	log.SetOutput(a.stderr)
	return log, nil
}

func driverConfig(sc *config.Scenario, scenario string) (simulation.DriverConfig, error) {
	switch scenario {
	case scenarioPaired:
		return sc.PairedDriver()
	case scenarioIndependent:
		return sc.IndependentDriver()
	}
	return simulation.DriverConfig{}, fmt.Errorf("unknown scenario %q (want %s or %s)", scenario, scenarioPaired, scenarioIndependent)
}

func (a *app) fail(cmd string, err error) int {
	fmt.Fprintf(a.stderr, "sim: %s: %v\n", cmd, err)
	return 1
}

func (a *app) printJSON(v interface{}) {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func (a *app) cmdConfig(args []string) int {
	flags, cf := a.newFlagSet("config")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	sc, err := a.load(cf)
	if err != nil {
		return a.fail("config", err)
	}
	if *cf.jsonOut {
		a.printJSON(sc)
		return 0
	}
	out, err := sc.Marshal()
	if err != nil {
		return a.fail("config", err)
	}
	a.stdout.Write(out)
	return 0
}
