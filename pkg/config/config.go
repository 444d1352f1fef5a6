// Package config loads intersection scenarios from YAML, .env and the
// environment, and turns them into driver configurations and optimization
// problems.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ardalan-sia/signal-timing/pkg/optimize"
	"github.com/ardalan-sia/signal-timing/pkg/phase"
	"github.com/ardalan-sia/signal-timing/pkg/simulation"
	"github.com/ardalan-sia/signal-timing/pkg/traffic"
)

// Environment variables read by Load.
const (
	EnvConfig       = "SIGNAL_CONFIG"
	EnvSeed         = "SIGNAL_SEED"
	EnvTicks        = "SIGNAL_TICKS"
	EnvReplications = "SIGNAL_REPLICATIONS"
	EnvInterval     = "SIGNAL_INTERVAL"
)

// PairedTiming is a two-phase plan: north-south green, clearance, east-west green, clearance.
type PairedTiming struct {
	NorthSouth  float64 `yaml:"north_south"`
	EastWest    float64 `yaml:"east_west"`
	Cycle       float64 `yaml:"cycle"`
	ServiceRate float64 `yaml:"service_rate"`
}

// SequenceTiming serves one direction at a time in Order.
type SequenceTiming struct {
	Order       []traffic.Direction           `yaml:"order"`
	Greens      map[traffic.Direction]float64 `yaml:"greens"`
	Cycle       float64                       `yaml:"cycle"`
	ServiceRate float64                       `yaml:"service_rate"`
}

// Optimizer holds the parameters of both green-split problems.
type Optimizer struct {
	ServiceRate   float64 `yaml:"service_rate"`
	Cycle         float64 `yaml:"cycle"`
	Tolerance     float64 `yaml:"tolerance,omitempty"`
	MaxIterations int     `yaml:"max_iterations,omitempty"`
	GammaLow      float64 `yaml:"gamma_low,omitempty"`
	GammaHigh     float64 `yaml:"gamma_high,omitempty"`
	CurvePoints   int     `yaml:"curve_points"`
}

// Scenario is the full description of an experiment.
type Scenario struct {
	Seed         uint64                        `yaml:"seed"`
	Ticks        int                           `yaml:"ticks"`
	Interval     time.Duration                 `yaml:"interval"`
	Replications int                           `yaml:"replications"`
	Clearance    float64                       `yaml:"clearance"`
	ArrivalRates map[traffic.Direction]float64 `yaml:"arrival_rates"`
	Paired       struct {
		Real      PairedTiming `yaml:"real"`
		Optimized PairedTiming `yaml:"optimized"`
	} `yaml:"paired"`
	Independent struct {
		Real      PairedTiming   `yaml:"real"`
		Optimized SequenceTiming `yaml:"optimized"`
	} `yaml:"independent"`
	Optimizer Optimizer `yaml:"optimizer"`
}

// Default reproduces the field study: observed rates, the fixed 60/42 plan
// and the previously optimized plans.
func Default() *Scenario {
	sc := &Scenario{
		Seed:         1,
		Ticks:        600,
		Replications: 20,
		Clearance:    4,
		ArrivalRates: map[traffic.Direction]float64{
			traffic.North: 0.438,
			traffic.East:  0.619,
			traffic.South: 0.382,
			traffic.West:  0.521,
		},
		Optimizer: Optimizer{ServiceRate: 5, Cycle: 110, CurvePoints: 500},
	}
	sc.Paired.Real = PairedTiming{NorthSouth: 60, EastWest: 42, Cycle: 110, ServiceRate: 1.95}
	sc.Paired.Optimized = PairedTiming{NorthSouth: 49.24, EastWest: 52.76, Cycle: 110, ServiceRate: 1.95}
	sc.Independent.Real = PairedTiming{NorthSouth: 60, EastWest: 42, Cycle: 110, ServiceRate: 1.95}
	sc.Independent.Optimized = SequenceTiming{
		Order: append([]traffic.Direction(nil), traffic.Compass...),
		Greens: map[traffic.Direction]float64{
			traffic.North: 22.36,
			traffic.East:  26.34,
			traffic.South: 21.12,
			traffic.West:  24.18,
		},
		Cycle:       110,
		ServiceRate: 3.0,
	}
	return sc
}

// Load builds a scenario from, in increasing precedence: defaults, the YAML
// file at path (or $SIGNAL_CONFIG), and SIGNAL_* variables. A .env file in
// the working directory is loaded first if present; it never overrides
// variables already set. A missing .env is fine, a malformed one is an error.
func Load(path string) (*Scenario, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	sc := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := Parse(data, sc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := sc.applyEnv(); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// Parse overlays YAML data onto sc.
func Parse(data []byte, sc *Scenario) error {
	return yaml.Unmarshal(data, sc)
}

// Marshal renders sc as YAML.
func (sc *Scenario) Marshal() ([]byte, error) {
	return yaml.Marshal(sc)
}

func (sc *Scenario) applyEnv() error {
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return traffic.NewInvalidConfigError(EnvSeed, "%v", err)
		}
		sc.Seed = seed
	}
	if v := os.Getenv(EnvTicks); v != "" {
		ticks, err := strconv.Atoi(v)
		if err != nil {
			return traffic.NewInvalidConfigError(EnvTicks, "%v", err)
		}
		sc.Ticks = ticks
	}
	if v := os.Getenv(EnvReplications); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return traffic.NewInvalidConfigError(EnvReplications, "%v", err)
		}
		sc.Replications = n
	}
	if v := os.Getenv(EnvInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return traffic.NewInvalidConfigError(EnvInterval, "%v", err)
		}
		sc.Interval = d
	}
	return nil
}

// Validate checks everything that can be checked without running.
func (sc *Scenario) Validate() error {
	if sc.Ticks <= 0 {
		return traffic.NewInvalidConfigError("ticks", "must be positive, got %d", sc.Ticks)
	}
	if sc.Replications <= 0 {
		return traffic.NewInvalidConfigError("replications", "must be positive, got %d", sc.Replications)
	}
	if sc.Interval < 0 {
		return traffic.NewInvalidConfigError("interval", "must not be negative, got %v", sc.Interval)
	}
	if sc.Clearance < 0 || math.IsNaN(sc.Clearance) {
		return traffic.NewInvalidConfigError("clearance", "must not be negative, got %v", sc.Clearance)
	}
	for _, d := range traffic.Compass {
		if _, ok := sc.ArrivalRates[d]; !ok {
			return traffic.NewInvalidConfigError("arrival_rates", "missing rate for %v", d)
		}
	}
	for d := range sc.ArrivalRates {
		if d > traffic.West {
			return traffic.NewInvalidConfigError("arrival_rates", "%v is not a compass direction", d)
		}
	}
	if _, err := sc.PairedDriver(); err != nil {
		return fmt.Errorf("paired: %w", err)
	}
	if _, err := sc.IndependentDriver(); err != nil {
		return fmt.Errorf("independent: %w", err)
	}
	if err := sc.PairedProblem().Validate(); err != nil {
		return fmt.Errorf("optimizer: %w", err)
	}
	if err := sc.AllocationProblem().Validate(); err != nil {
		return fmt.Errorf("optimizer: %w", err)
	}
	return nil
}

// PairRates averages opposing approaches into NS and EW rates.
func (sc *Scenario) PairRates() map[traffic.Direction]float64 {
	return map[traffic.Direction]float64{
		traffic.NorthSouth: (sc.ArrivalRates[traffic.North] + sc.ArrivalRates[traffic.South]) / 2,
		traffic.EastWest:   (sc.ArrivalRates[traffic.East] + sc.ArrivalRates[traffic.West]) / 2,
	}
}

func (sc *Scenario) pairedPlan(name string, t PairedTiming, first, second []traffic.Direction) (simulation.Plan, error) {
	s, err := phase.Paired(first, t.NorthSouth, second, t.EastWest, sc.Clearance, t.Cycle)
	if err != nil {
		return simulation.Plan{}, fmt.Errorf("%s plan: %w", name, err)
	}
	return simulation.Plan{Name: name, Schedule: s, ServiceRate: t.ServiceRate}, nil
}

// PairedDriver configures the two-approach comparison of real and optimized timing.
func (sc *Scenario) PairedDriver() (simulation.DriverConfig, error) {
	ns, ew := []traffic.Direction{traffic.NorthSouth}, []traffic.Direction{traffic.EastWest}
	fixed, err := sc.pairedPlan("real", sc.Paired.Real, ns, ew)
	if err != nil {
		return simulation.DriverConfig{}, err
	}
	opt, err := sc.pairedPlan("optimized", sc.Paired.Optimized, ns, ew)
	if err != nil {
		return simulation.DriverConfig{}, err
	}
	cfg := simulation.DriverConfig{
		Directions: append([]traffic.Direction(nil), traffic.Pairs...),
		Rates:      sc.PairRates(),
		Plans:      []simulation.Plan{fixed, opt},
	}
	return cfg, cfg.Validate()
}

// IndependentDriver configures the four-approach comparison of the fixed
// paired plan against one-direction-at-a-time timing.
func (sc *Scenario) IndependentDriver() (simulation.DriverConfig, error) {
	fixed, err := sc.pairedPlan("real", sc.Independent.Real,
		[]traffic.Direction{traffic.North, traffic.South},
		[]traffic.Direction{traffic.East, traffic.West})
	if err != nil {
		return simulation.DriverConfig{}, err
	}

	o := sc.Independent.Optimized
	greens := make([]phase.Green, 0, len(o.Order))
	for _, d := range o.Order {
		g, ok := o.Greens[d]
		if !ok {
			return simulation.DriverConfig{}, traffic.NewInvalidConfigError("independent.optimized.greens", "missing green for %v", d)
		}
		greens = append(greens, phase.Green{Direction: d, Duration: g})
	}
	s, err := phase.Independent(greens, sc.Clearance, o.Cycle)
	if err != nil {
		return simulation.DriverConfig{}, fmt.Errorf("optimized plan: %w", err)
	}

	rates := make(map[traffic.Direction]float64, len(traffic.Compass))
	for _, d := range traffic.Compass {
		rates[d] = sc.ArrivalRates[d]
	}
	cfg := simulation.DriverConfig{
		Directions: append([]traffic.Direction(nil), traffic.Compass...),
		Rates:      rates,
		Plans: []simulation.Plan{
			fixed,
			{Name: "optimized", Schedule: s, ServiceRate: o.ServiceRate},
		},
	}
	return cfg, cfg.Validate()
}

// PairedProblem is scenario (a): two pairs, overhead of two clearances.
func (sc *Scenario) PairedProblem() optimize.PairedProblem {
	r := sc.PairRates()
	return optimize.PairedProblem{
		ServiceRate:   sc.Optimizer.ServiceRate,
		Cycle:         sc.Optimizer.Cycle,
		Overhead:      2 * sc.Clearance,
		RateA:         r[traffic.NorthSouth],
		RateB:         r[traffic.EastWest],
		Tolerance:     sc.Optimizer.Tolerance,
		MaxIterations: sc.Optimizer.MaxIterations,
	}
}

// AllocationProblem is scenario (b): four independent approaches, overhead of four clearances.
func (sc *Scenario) AllocationProblem() optimize.AllocationProblem {
	rates := make([]optimize.DirectionRate, 0, len(traffic.Compass))
	for _, d := range traffic.Compass {
		rates = append(rates, optimize.DirectionRate{Direction: d, Rate: sc.ArrivalRates[d]})
	}
	return optimize.AllocationProblem{
		ServiceRate:   sc.Optimizer.ServiceRate,
		Cycle:         sc.Optimizer.Cycle,
		Overhead:      float64(len(rates)) * sc.Clearance,
		Rates:         rates,
		GammaLow:      sc.Optimizer.GammaLow,
		GammaHigh:     sc.Optimizer.GammaHigh,
		Tolerance:     sc.Optimizer.Tolerance,
		MaxIterations: sc.Optimizer.MaxIterations,
	}
}
