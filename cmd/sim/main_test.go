package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardalan-sia/signal-timing/pkg/config"
	"github.com/ardalan-sia/signal-timing/pkg/frame"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.EnvConfig, config.EnvSeed, config.EnvTicks, config.EnvReplications, config.EnvInterval} {
		t.Setenv(k, "")
	}
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	clearEnv(t)
	return execCLI(stdin, args...)
}

func execCLI(stdin string, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := newApp(strings.NewReader(stdin), &stdout, &stderr).run(args)
	return code, stdout.String(), stderr.String()
}

func TestVersionAndUsage(t *testing.T) {
	code, out, _ := runCLI(t, "", "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "sim "+version+"\n", out)

	code, out, _ = runCLI(t, "", "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Usage:")

	code, _, _ = runCLI(t, "")
	assert.Equal(t, 1, code)

	code, _, errOut := runCLI(t, "", "launch")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, `sim: unknown command "launch"`)
}

func TestOptimizeJSON(t *testing.T) {
	code, out, errOut := runCLI(t, "", "optimize", "--json")
	require.Equal(t, 0, code, errOut)

	var report struct {
		Paired struct {
			Converged bool    `json:"converged"`
			GreenNS   float64 `json:"green_ns"`
			GreenEW   float64 `json:"green_ew"`
		} `json:"paired"`
		Independent struct {
			Converged  bool               `json:"converged"`
			Greens     map[string]float64 `json:"greens"`
			TotalGreen float64            `json:"total_green"`
		} `json:"independent"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Paired.Converged)
	assert.InDelta(t, 49.24, report.Paired.GreenNS, 1e-2)
	assert.InDelta(t, 52.76, report.Paired.GreenEW, 1e-2)
	assert.True(t, report.Independent.Converged)
	assert.InDelta(t, 94, report.Independent.TotalGreen, 1e-3)
	assert.InDelta(t, 22.356, report.Independent.Greens["N"], 1e-2)
}

func TestOptimizeText(t *testing.T) {
	code, out, _ := runCLI(t, "", "optimize", "paired")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "paired: converged")
	assert.Contains(t, out, "NS green = 49.24")
	assert.NotContains(t, out, "independent")
}

func TestOptimizeNotConverged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tight.yaml")
	require.NoError(t, os.WriteFile(path, []byte("optimizer:\n  max_iterations: 2\n"), 0o644))

	code, out, _ := runCLI(t, "", "optimize", "independent", "--config", path)
	assert.Equal(t, exitNotConverged, code)
	assert.Contains(t, out, "independent: iteration budget exhausted")
	assert.NotContains(t, out, "green =")
}

func TestSimulateText(t *testing.T) {
	code, out, errOut := runCLI(t, "", "simulate", "independent", "--ticks", "5")
	require.Equal(t, 0, code, errOut)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 6)
	assert.True(t, strings.HasPrefix(lines[0], "tick    0 | real[0] N*="))
	assert.Contains(t, lines[0], "| optimized[0] N*=")
	assert.Contains(t, out, "summary:")
}

func TestSimulateMsgpack(t *testing.T) {
	code, out, errOut := runCLI(t, "", "simulate", "--format", "msgpack", "--ticks", "3")
	require.Equal(t, 0, code, errOut)

	dec := frame.NewDecoder(strings.NewReader(out))
	for i := 0; i < 3; i++ {
		obs, err := dec.Decode()
		require.NoError(t, err)
		assert.Equal(t, i, obs.Tick)
		require.Len(t, obs.Plans, 2)
	}
	_, err := dec.Decode()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSimulateInteractiveQuit(t *testing.T) {
	code, _, errOut := runCLI(t, "q\n", "simulate", "--interactive", "--ticks", "100000", "--format", "json")
	assert.Equal(t, 0, code, errOut)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestSimulateInteractiveEndOfInputWhilePaused(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "interval: 1ms\n")

	type result struct {
		code     int
		out, err string
	}
	done := make(chan result, 1)
	go func() {
		code, out, errOut := execCLI("a\n", "simulate", "--interactive", "--ticks", "20", "--format", "json", "--config", path)
		done <- result{code, out, errOut}
	}()

	select {
	case r := <-done:
		require.Equal(t, 0, r.code, r.err)
		assert.Len(t, strings.Split(strings.TrimSpace(r.out), "\n"), 20)
	case <-time.After(10 * time.Second):
		t.Fatal("simulate did not finish after stdin closed on a paused run")
	}
}

func TestSimulateSeedZero(t *testing.T) {
	code, flagged, errOut := runCLI(t, "", "simulate", "--seed", "0", "--ticks", "200")
	require.Equal(t, 0, code, errOut)

	code, configured, errOut := runCLI(t, "", "simulate", "--ticks", "200", "--config", writeConfig(t, "seed: 0\n"))
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, configured, flagged, "--seed 0 selects seed 0")

	code, defaulted, errOut := runCLI(t, "", "simulate", "--ticks", "200")
	require.Equal(t, 0, code, errOut)
	assert.NotEqual(t, defaulted, flagged, "default seed is 1")
}

func TestSimulateErrors(t *testing.T) {
	code, _, errOut := runCLI(t, "", "simulate", "--format", "xml")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "sim: simulate: unknown format")

	code, _, errOut = runCLI(t, "", "simulate", "diagonal")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown scenario")

	code, _, errOut = runCLI(t, "", "simulate", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "sim: simulate: read ")
}

func TestReplicateJSON(t *testing.T) {
	code, out, errOut := runCLI(t, "", "replicate", "--replications", "3", "--ticks", "50", "--json")
	require.Equal(t, 0, code, errOut)

	var report struct {
		Replications int `json:"replications"`
		Approaches   []struct {
			Plan         string  `json:"plan"`
			Direction    string  `json:"direction"`
			MeanQueue    float64 `json:"mean_queue"`
			Replications int     `json:"replications"`
		} `json:"approaches"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Replications)
	require.Len(t, report.Approaches, 4)
	assert.Equal(t, "real", report.Approaches[0].Plan)
	assert.Equal(t, "NS", report.Approaches[0].Direction)
	for _, ap := range report.Approaches {
		assert.Equal(t, 3, ap.Replications)
		assert.GreaterOrEqual(t, ap.MeanQueue, 0.0)
	}
}

func TestCurve(t *testing.T) {
	code, out, _ := runCLI(t, "", "curve", "independent", "--points", "5")
	require.Equal(t, 0, code)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "gamma residual", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "0.001 "))

	code, out, _ = runCLI(t, "", "curve", "paired", "--points", "3", "--json")
	require.Equal(t, 0, code)
	assert.Contains(t, out, `"scenario": "paired"`)
	assert.Contains(t, out, "null", "the ends of the range are unstable")
}

func TestConfigCommand(t *testing.T) {
	code, out, _ := runCLI(t, "", "config")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "arrival_rates:")
}
