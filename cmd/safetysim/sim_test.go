package main

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jeyong/simsafety/internal/config"
	"github.com/jeyong/simsafety/internal/journal"
	"github.com/jeyong/simsafety/internal/monitoring"
	"github.com/jeyong/simsafety/internal/sensor"
	"github.com/jeyong/simsafety/internal/timeutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

func newTestSim(t *testing.T, cfg *config.SafetyConfig, scene *sensor.Scene, opts options) *simulation {
	t.Helper()
	sim, err := newSimulation(cfg, timeutil.NewMockClock(time.Unix(0, 0)), scene, opts)
	require.NoError(t, err)
	t.Cleanup(func() { sim.Close() })
	return sim
}

func TestRun_HardStopBeforePillar(t *testing.T) {
	cfg := config.DefaultSafetyConfig()
	sim := newTestSim(t, cfg, defaultScene(), defaultOptions())

	sum, err := sim.run(context.Background(), defaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 600, sum.Steps)
	assert.True(t, sum.Stopped)
	assert.Equal(t, 1, sum.Unsafe)
	assert.Zero(t, sum.Suggested)

	// braking through the velocity lag still ends short of the pillar face
	assert.Greater(t, sum.Final.X, 12.0)
	assert.Less(t, sum.Final.X, 18.0)
	assert.InDelta(t, 0, sum.Final.Y, 1e-9)
	assert.Less(t, sum.MinCurRisk, 0.0)
}

func TestRun_ClosestMoveSteersAround(t *testing.T) {
	cfg := config.DefaultSafetyConfig()
	strategy := "closest_move"
	cfg.Strategy = &strategy
	sim := newTestSim(t, cfg, defaultScene(), defaultOptions())

	sum, err := sim.run(context.Background(), defaultOptions())
	require.NoError(t, err)

	assert.False(t, sum.Stopped)
	assert.Positive(t, sum.Unsafe)
	assert.Positive(t, sum.Suggested)
	gap := math.Hypot(sum.Final.X-20, sum.Final.Y)
	assert.Greater(t, gap, 2.0, "vehicle ended inside the pillar")
}

func TestRun_EmptySceneIsAlwaysSafe(t *testing.T) {
	opts := defaultOptions()
	opts.Steps = 100
	sim := newTestSim(t, config.DefaultSafetyConfig(), &sensor.Scene{}, opts)

	sum, err := sim.run(context.Background(), opts)
	require.NoError(t, err)
	assert.Zero(t, sum.Unsafe)
	assert.False(t, sum.Stopped)
	assert.True(t, math.IsNaN(sum.MinCurRisk), "no obstacle gives no finite risk")
	// one second at up to 5 m/s behind a 200ms lag
	assert.Greater(t, sum.Final.X, 3.0)
	assert.Less(t, sum.Final.X, 5.0)
}

func TestRun_Journal(t *testing.T) {
	opts := defaultOptions()
	opts.Steps = 50
	opts.JournalPath = filepath.Join(t.TempDir(), "verdicts.db")
	sim := newTestSim(t, config.DefaultSafetyConfig(), defaultScene(), opts)

	_, err := sim.run(context.Background(), opts)
	require.NoError(t, err)
	require.NoError(t, sim.Close())

	j, err := journal.Open(opts.JournalPath, nil)
	require.NoError(t, err)
	defer j.Close()
	total, unsafe, err := j.Counts()
	require.NoError(t, err)
	assert.Equal(t, 50, total)
	assert.Zero(t, unsafe)
}

func TestRun_RealClockHonoursContext(t *testing.T) {
	opts := defaultOptions()
	opts.Steps = 1000000
	sim, err := newSimulation(config.DefaultSafetyConfig(), timeutil.RealClock{}, defaultScene(), opts)
	require.NoError(t, err)
	defer sim.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	sum, err := sim.run(ctx, opts)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, sum.Steps, opts.Steps)
}

func TestRun_MockClockHonoursCancel(t *testing.T) {
	opts := defaultOptions()
	sim := newTestSim(t, config.DefaultSafetyConfig(), defaultScene(), opts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := sim.run(ctx, opts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sum.Steps)
}

func TestSensorSettings(t *testing.T) {
	settings := sensorSettings(4)
	require.Len(t, settings, 5)
	assert.Equal(t, sensor.Barometer, settings[0].Kind)
	for i, s := range settings[1:] {
		assert.Equal(t, sensor.Distance, s.Kind)
		assert.InDelta(t, float64(i)*math.Pi/2, s.Distance.Bearing, 1e-12)
		assert.InDelta(t, math.Pi/4, s.Distance.HalfWidth, 1e-12)
	}
}

func TestReport(t *testing.T) {
	opts := defaultOptions()
	opts.Steps = 1
	sim := newTestSim(t, config.DefaultSafetyConfig(), defaultScene(), opts)
	_, err := sim.run(context.Background(), opts)
	require.NoError(t, err)

	out := sim.report()
	for _, name := range []string{"velocity", "vehicle", "environment", "barometer", "range0"} {
		assert.True(t, strings.Contains(out, name), "report missing %s", name)
	}
}

func TestVehicle_IntegratesVelocity(t *testing.T) {
	sim := newTestSim(t, config.DefaultSafetyConfig(), &sensor.Scene{}, defaultOptions())
	require.NoError(t, sim.group.Reset())

	clock := sim.clock.(*timeutil.MockClock)
	sim.velocity.SetInput(r3.Vec{Y: 2})
	for i := 0; i < 300; i++ {
		clock.Advance(10 * time.Millisecond)
		require.NoError(t, sim.group.Update())
	}
	// 3 s at 2 m/s east minus the 0.2 s lag
	assert.InDelta(t, 5.6, sim.kin.Position.Y, 0.05)
	assert.InDelta(t, 0, sim.kin.Position.X, 1e-12)
}
