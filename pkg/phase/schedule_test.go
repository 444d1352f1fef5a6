package phase_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardalan-sia/signal-timing/pkg/phase"
	"github.com/ardalan-sia/signal-timing/pkg/traffic"
)

func fixedPaired(t *testing.T) *phase.Schedule {
	t.Helper()
	s, err := phase.Paired(
		[]traffic.Direction{traffic.North, traffic.South}, 60,
		[]traffic.Direction{traffic.East, traffic.West}, 42,
		4, 110)
	require.NoError(t, err)
	return s
}

func optimizedIndependent(t *testing.T) *phase.Schedule {
	t.Helper()
	s, err := phase.Independent([]phase.Green{
		{Direction: traffic.North, Duration: 22.36},
		{Direction: traffic.East, Duration: 26.34},
		{Direction: traffic.South, Duration: 21.12},
		{Direction: traffic.West, Duration: 24.18},
	}, 4, 110)
	require.NoError(t, err)
	return s
}

func TestPairedWindows(t *testing.T) {
	s := fixedPaired(t)
	ns := []traffic.Direction{traffic.North, traffic.South}
	ew := []traffic.Direction{traffic.East, traffic.West}

	assert.Equal(t, ns, s.Green(0))
	assert.Equal(t, ns, s.Green(59))
	assert.Empty(t, s.Green(60), "end of a window is not green")
	assert.Empty(t, s.Green(63))
	assert.Equal(t, ew, s.Green(64), "start of a window is green")
	assert.Equal(t, ew, s.Green(105))
	assert.Empty(t, s.Green(106))
	assert.Empty(t, s.Green(109))
	assert.Equal(t, ns, s.Green(110))

	assert.True(t, s.IsGreen(traffic.South, 10))
	assert.False(t, s.IsGreen(traffic.East, 10))
	assert.Equal(t, []traffic.Direction{traffic.North, traffic.South, traffic.East, traffic.West}, s.Directions())
}

func TestIndependentWindows(t *testing.T) {
	s := optimizedIndependent(t)

	cases := []struct {
		t    float64
		want []traffic.Direction
	}{
		{0, []traffic.Direction{traffic.North}},
		{22, []traffic.Direction{traffic.North}},
		{23, nil},
		{26.5, []traffic.Direction{traffic.East}},
		{53, nil},
		{56.8, []traffic.Direction{traffic.South}},
		{81.9, []traffic.Direction{traffic.West}},
		{105, []traffic.Direction{traffic.West}},
		{106.5, nil},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, s.Green(c.t), "t=%v", c.t)
	}
}

func TestCyclePartition(t *testing.T) {
	for _, s := range []*phase.Schedule{fixedPaired(t), optimizedIndependent(t)} {
		entries := s.Entries()
		for tick := 0; tick < 3*int(s.Cycle()); tick++ {
			idx, e, ok := s.Active(float64(tick))
			require.True(t, ok, "tick %d", tick)
			matches := 0
			var start float64
			tau := float64(tick % int(s.Cycle()))
			for _, candidate := range entries {
				if start <= tau && tau < start+candidate.Duration {
					matches++
				}
				start += candidate.Duration
			}
			assert.Equal(t, 1, matches, "tick %d covered by %d entries", tick, matches)
			assert.Equal(t, entries[idx], e)
		}
	}
}

func TestPeriodicity(t *testing.T) {
	for _, s := range []*phase.Schedule{fixedPaired(t), optimizedIndependent(t)} {
		i0, e0, ok0 := s.Active(0)
		iC, eC, okC := s.Active(s.Cycle())
		assert.Equal(t, ok0, okC)
		assert.Equal(t, i0, iC)
		assert.Equal(t, e0, eC)
		assert.Equal(t, s.Green(-1), s.Green(s.Cycle()-1))
	}
}

func TestConstructionIdempotent(t *testing.T) {
	a, b := optimizedIndependent(t), optimizedIndependent(t)
	for tick := 0; tick < 220; tick++ {
		assert.Equal(t, a.Green(float64(tick)), b.Green(float64(tick)))
	}
}

func TestInvalidSchedules(t *testing.T) {
	cases := map[string]func() (*phase.Schedule, error){
		"sum mismatch": func() (*phase.Schedule, error) {
			return phase.Paired([]traffic.Direction{traffic.NorthSouth}, 60, []traffic.Direction{traffic.EastWest}, 42, 4, 120)
		},
		"zero cycle": func() (*phase.Schedule, error) {
			return phase.New([]phase.Entry{{Duration: 1}}, 0)
		},
		"no entries": func() (*phase.Schedule, error) {
			return phase.New(nil, 10)
		},
		"negative duration": func() (*phase.Schedule, error) {
			return phase.New([]phase.Entry{{Duration: 12}, {Duration: -2}}, 10)
		},
		"negative clearance": func() (*phase.Schedule, error) {
			return phase.Independent([]phase.Green{{Direction: traffic.North, Duration: 10}}, -1, 9)
		},
		"duplicate green": func() (*phase.Schedule, error) {
			return phase.New([]phase.Entry{{Green: []traffic.Direction{traffic.North, traffic.North}, Duration: 10}}, 10)
		},
		"unknown direction": func() (*phase.Schedule, error) {
			return phase.New([]phase.Entry{{Green: []traffic.Direction{traffic.Direction(9)}, Duration: 10}}, 10)
		},
		"too many directions": func() (*phase.Schedule, error) {
			return phase.New([]phase.Entry{
				{Green: []traffic.Direction{traffic.North, traffic.South}, Duration: 5},
				{Green: []traffic.Direction{traffic.East, traffic.West, traffic.NorthSouth}, Duration: 5},
			}, 10)
		},
	}
	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := build()
			assert.Nil(t, s)
			var cfgErr *traffic.ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, traffic.ErrCodeInvalidConfiguration, cfgErr.Code)
		})
	}
}

func TestZeroClearance(t *testing.T) {
	s, err := phase.Paired([]traffic.Direction{traffic.NorthSouth}, 5, []traffic.Direction{traffic.EastWest}, 5, 0, 10)
	require.NoError(t, err)
	assert.Len(t, s.Entries(), 2)
	assert.Equal(t, []traffic.Direction{traffic.EastWest}, s.Green(5))
}
