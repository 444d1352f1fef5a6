package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardalan-sia/signal-timing/pkg/traffic"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvConfig, EnvSeed, EnvTicks, EnvReplications, EnvInterval} {
		t.Setenv(k, "")
	}
}

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	sc := Default()
	require.NoError(t, sc.Validate())

	rates := sc.PairRates()
	assert.InDelta(t, 0.41, rates[traffic.NorthSouth], 1e-12)
	assert.InDelta(t, 0.57, rates[traffic.EastWest], 1e-12)
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	sc, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 600, sc.Ticks)
	assert.Equal(t, uint64(1), sc.Seed)
	assert.Equal(t, 4.0, sc.Clearance)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeScenario(t, `
seed: 99
ticks: 120
interval: 50ms
arrival_rates:
  N: 0.3
independent:
  optimized:
    order: [W, S, E, N]
    service_rate: 2.5
optimizer:
  service_rate: 4
`)
	sc, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(99), sc.Seed)
	assert.Equal(t, 120, sc.Ticks)
	assert.Equal(t, 50*time.Millisecond, sc.Interval)
	assert.Equal(t, 0.3, sc.ArrivalRates[traffic.North])
	assert.Equal(t, 0.619, sc.ArrivalRates[traffic.East], "unlisted rates keep defaults")
	assert.Equal(t, []traffic.Direction{traffic.West, traffic.South, traffic.East, traffic.North}, sc.Independent.Optimized.Order)
	assert.Equal(t, 2.5, sc.Independent.Optimized.ServiceRate)
	assert.Equal(t, 4.0, sc.Optimizer.ServiceRate)
	assert.Equal(t, 110.0, sc.Optimizer.Cycle)

	cfg, err := sc.IndependentDriver()
	require.NoError(t, err)
	assert.Equal(t, []traffic.Direction{traffic.West}, cfg.Plans[1].Schedule.Green(0))
}

func TestLoadFromEnvPath(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfig, writeScenario(t, "ticks: 42\n"))
	sc, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 42, sc.Ticks)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvSeed, "7")
	t.Setenv(EnvTicks, "30")
	t.Setenv(EnvReplications, "3")
	t.Setenv(EnvInterval, "10ms")

	sc, err := Load(writeScenario(t, "ticks: 500\n"))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), sc.Seed)
	assert.Equal(t, 30, sc.Ticks, "environment wins over the file")
	assert.Equal(t, 3, sc.Replications)
	assert.Equal(t, 10*time.Millisecond, sc.Interval)

	t.Setenv(EnvTicks, "many")
	_, err = Load("")
	var cfgErr *traffic.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, EnvTicks, cfgErr.Field)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeScenario(t, "ticks: [1, 2"))
	assert.Error(t, err)

	_, err = Load(writeScenario(t, "arrival_rates:\n  up: 0.3\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(sc *Scenario){
		"zero ticks":         func(sc *Scenario) { sc.Ticks = 0 },
		"zero replications":  func(sc *Scenario) { sc.Replications = 0 },
		"negative interval":  func(sc *Scenario) { sc.Interval = -time.Second },
		"negative clearance": func(sc *Scenario) { sc.Clearance = -4 },
		"missing rate":       func(sc *Scenario) { delete(sc.ArrivalRates, traffic.West) },
		"pair rate key":      func(sc *Scenario) { sc.ArrivalRates[traffic.NorthSouth] = 0.2 },
		"cycle mismatch":     func(sc *Scenario) { sc.Paired.Real.Cycle = 100 },
		"zero service":       func(sc *Scenario) { sc.Paired.Optimized.ServiceRate = 0 },
		"missing green":      func(sc *Scenario) { delete(sc.Independent.Optimized.Greens, traffic.South) },
		"optimizer cycle":    func(sc *Scenario) { sc.Optimizer.Cycle = 0 },
		"optimizer mu":       func(sc *Scenario) { sc.Optimizer.ServiceRate = -5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			sc := Default()
			mutate(sc)
			err := sc.Validate()
			var cfgErr *traffic.ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, traffic.ErrCodeInvalidConfiguration, cfgErr.Code)
		})
	}
}

func TestDrivers(t *testing.T) {
	sc := Default()

	paired, err := sc.PairedDriver()
	require.NoError(t, err)
	assert.Equal(t, traffic.Pairs, paired.Directions)
	require.Len(t, paired.Plans, 2)
	assert.Equal(t, "real", paired.Plans[0].Name)
	assert.Equal(t, []traffic.Direction{traffic.EastWest}, paired.Plans[0].Schedule.Green(64))
	assert.Equal(t, []traffic.Direction{traffic.EastWest}, paired.Plans[1].Schedule.Green(54))

	independent, err := sc.IndependentDriver()
	require.NoError(t, err)
	assert.Equal(t, traffic.Compass, independent.Directions)
	assert.Equal(t, 1.95, independent.Plans[0].ServiceRate)
	assert.Equal(t, 3.0, independent.Plans[1].ServiceRate)
	assert.Equal(t, []traffic.Direction{traffic.North, traffic.South}, independent.Plans[0].Schedule.Green(0))
	assert.Equal(t, []traffic.Direction{traffic.North}, independent.Plans[1].Schedule.Green(0))
}

func TestProblems(t *testing.T) {
	sc := Default()

	a := sc.PairedProblem()
	assert.Equal(t, 8.0, a.Overhead)
	assert.Equal(t, 5.0, a.ServiceRate)
	assert.InDelta(t, 0.41, a.RateA, 1e-12)

	b := sc.AllocationProblem()
	assert.Equal(t, 16.0, b.Overhead)
	require.Len(t, b.Rates, 4)
	assert.Equal(t, traffic.North, b.Rates[0].Direction)
	assert.Equal(t, 0.521, b.Rates[3].Rate)

	res, err := b.Optimize()
	require.NoError(t, err)
	assert.InDelta(t, 94, res.TotalGreen, 1e-3)
}

func TestMarshalRoundTrip(t *testing.T) {
	want := Default()
	out, err := want.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(out), "arrival_rates:")

	got := &Scenario{}
	require.NoError(t, Parse(out, got))
	assert.Equal(t, want.ArrivalRates, got.ArrivalRates)
	assert.Equal(t, want.Independent.Optimized, got.Independent.Optimized)
	assert.Equal(t, want, got)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Unsetenv(EnvTicks))
	t.Chdir(t.TempDir())

	require.NoError(t, os.WriteFile(".env", []byte(EnvTicks+"=77\n"), 0o644))
	sc, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 77, sc.Ticks)

	require.NoError(t, os.Unsetenv(EnvTicks))
	require.NoError(t, os.WriteFile(".env", []byte("BAD-KEY=1\n"), 0o644))
	_, err = Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load .env")
}
