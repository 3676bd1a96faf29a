package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/famine-sim/internal/policy"
)

func TestRunner_RunsYearBudget(t *testing.T) {
	sim := newTestSimulation(t, testOptions(21))
	r := NewRunner(sim, testOptions(0).Logger)
	r.Interval = 0
	r.Years = 3

	var seen []int
	r.Observe(ObserverFunc(func(_ context.Context, s *Simulation, year int) error {
		seen = append(seen, year)
		return nil
	}))

	var requested []int
	r.Effects = func(year int) []policy.Effect {
		requested = append(requested, year)
		return nil
	}

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, []int{1981, 1982, 1983, 1984}, seen)
	assert.Equal(t, []int{1982, 1983, 1984}, requested)
	assert.Equal(t, 1984, sim.Year())
}

func TestRunner_StopsOnCancel(t *testing.T) {
	sim := newTestSimulation(t, testOptions(21))
	r := NewRunner(sim, testOptions(0).Logger)
	r.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	r.Observe(ObserverFunc(func(context.Context, *Simulation, int) error {
		cancel()
		return nil
	}))

	require.NoError(t, r.Run(ctx))
	assert.Equal(t, testStartYear, sim.Year())
}

func TestRunner_ObserverErrorStopsRun(t *testing.T) {
	sim := newTestSimulation(t, testOptions(21))
	r := NewRunner(sim, testOptions(0).Logger)
	r.Interval = 0

	boom := errors.New("disk full")
	r.Observe(ObserverFunc(func(_ context.Context, _ *Simulation, year int) error {
		if year == testStartYear+2 {
			return boom
		}
		return nil
	}))

	err := r.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, testStartYear+2, sim.Year())
}

func TestRunner_StopOnFamine(t *testing.T) {
	opts := testOptions(21)
	opts.FamineThreshold = 1e-9
	sim := newTestSimulation(t, opts)

	// Capping every crop to nothing starves the world.
	r := NewRunner(sim, opts.Logger)
	r.Interval = 0
	r.Years = 10
	r.StopOnFamine = true
	r.Effects = func(int) []policy.Effect {
		var out []policy.Effect
		for _, crop := range []string{"WHEAT", "RICE", "CORN", "SOY", "VEGETABLES", "FRUIT", "OILSEED", "FEED"} {
			out = append(out, policy.Effect{Kind: policy.KindLandUseCap, Crop: crop, Magnitude: 0})
		}
		return out
	}

	require.NoError(t, r.Run(context.Background()))
	assert.True(t, sim.FamineReached())
	assert.Equal(t, testStartYear+1, sim.Year())
}
