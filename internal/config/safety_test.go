package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jeyong/simsafety/internal/geo"
	"github.com/jeyong/simsafety/internal/geofence"
	"github.com/jeyong/simsafety/internal/monitoring"
	"github.com/jeyong/simsafety/internal/safety"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

func TestDefaultSafetyConfig(t *testing.T) {
	cfg := DefaultSafetyConfig()

	if cfg.ObstacleTicks == nil || *cfg.ObstacleTicks != 36 {
		t.Errorf("Expected ObstacleTicks 36, got %v", cfg.ObstacleTicks)
	}
	if cfg.Strategy == nil || *cfg.Strategy != "raise_exception" {
		t.Errorf("Expected Strategy raise_exception, got %v", cfg.Strategy)
	}
	if cfg.LookaheadTime == nil || *cfg.LookaheadTime != "500ms" {
		t.Errorf("Expected LookaheadTime '500ms', got %v", cfg.LookaheadTime)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	// Every default pointer agrees with its getter on an empty config.
	empty := &SafetyConfig{}
	assert.Equal(t, empty.GetObstacleTicks(), cfg.GetObstacleTicks())
	assert.Equal(t, empty.GetClearance(), cfg.GetClearance())
	assert.Equal(t, empty.GetLookaheadTime(), cfg.GetLookaheadTime())
	assert.Equal(t, empty.GetFenceXYLength(), cfg.GetFenceXYLength())
	assert.Equal(t, empty.GetFenceMinAltitude(), cfg.GetFenceMinAltitude())
	assert.Equal(t, empty.GetFenceMaxAltitude(), cfg.GetFenceMaxAltitude())
	assert.Equal(t, empty.GetHome(), cfg.GetHome())
	assert.Equal(t, empty.GetTickInterval(), cfg.GetTickInterval())
	assert.Equal(t, empty.GetVelocityTimeConstant(), cfg.GetVelocityTimeConstant())
	assert.Equal(t, empty.GetEnabledViolations(), cfg.GetEnabledViolations())
	assert.Equal(t, empty.GetStrategy(), cfg.GetStrategy())
}

func TestDefaultsFileMatchesDefaultSafetyConfig(t *testing.T) {
	fromFile := MustLoadDefaultConfig()
	if diff := cmp.Diff(DefaultSafetyConfig(), fromFile); diff != "" {
		t.Errorf("%s differs from DefaultSafetyConfig (-code +file):\n%s", DefaultConfigPath, diff)
	}
}

func TestLoadSafetyConfig_JSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "obstacle_ticks": 8,
  "blindspots": [1, 5],
  "strategy": "ClosestMove",
  "max_speed": 36,
  "speed_units": "kmph",
  "fence_shape": "cylinder",
  "fence_origin": {"x": 1, "y": 2, "z": -3},
  "tick_interval": "20ms"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadSafetyConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.GetObstacleTicks())
	assert.Equal(t, []int{1, 5}, cfg.Blindspots)
	assert.Equal(t, safety.ClosestMove, cfg.GetStrategy())
	assert.Equal(t, "cylinder", cfg.GetFenceShape())
	assert.Equal(t, Vec3{X: 1, Y: 2, Z: -3}, cfg.GetFenceOrigin())
	assert.Equal(t, 20*time.Millisecond, cfg.GetTickInterval())
	// unset fields fall back to defaults
	assert.Equal(t, safety.DefaultClearance, cfg.GetClearance())

	params, err := cfg.EvaluatorParams()
	require.NoError(t, err)
	assert.InDelta(t, 10, params.MaxSpeed, 1e-9)
	assert.InDelta(t, 0.5, params.LookaheadTime, 1e-12)
}

func TestLoadSafetyConfig_YAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "safety.yaml")

	testYAML := `
obstacle_ticks: 12
odd_blindspots: true
enabled_violations: [obstacle]
strategy: opposite_move
clearance: 1.5
home:
  latitude: 10
  longitude: 20
  altitude: 30
`
	require.NoError(t, os.WriteFile(configPath, []byte(testYAML), 0644))

	cfg, err := LoadSafetyConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.GetObstacleTicks())
	assert.True(t, cfg.GetOddBlindspots())
	assert.Equal(t, safety.NewViolationSet(safety.Obstacle), cfg.GetEnabledViolations())
	assert.Equal(t, safety.OppositeMove, cfg.GetStrategy())
	assert.Equal(t, 1.5, cfg.GetClearance())
	assert.Equal(t, geo.Point{Latitude: 10, Longitude: 20, Altitude: 30}, cfg.GetHome())
}

func TestLoadSafetyConfig_ExampleYAML(t *testing.T) {
	cfg, err := LoadSafetyConfig("../../config/safety.example.yaml")
	require.NoError(t, err)
	assert.Equal(t, 72, cfg.GetObstacleTicks())
	assert.Equal(t, "verdicts.db", cfg.GetJournalPath())
}

func TestLoadSafetyConfigMissing(t *testing.T) {
	_, err := LoadSafetyConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadSafetyConfigBadExtension(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("x = 1"), 0644))

	_, err := LoadSafetyConfig(configPath)
	assert.ErrorContains(t, err, "extension")
}

func TestLoadSafetyConfigTooLarge(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "big.json")
	require.NoError(t, os.WriteFile(configPath, make([]byte, 1024*1024+1), 0644))

	_, err := LoadSafetyConfig(configPath)
	assert.ErrorContains(t, err, "too large")
}

func TestLoadSafetyConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()

	tests := map[string]string{
		"syntax.json":   `{"clearance": "invalid"`,
		"syntax.yaml":   "clearance: [1, 2",
		"semantic.json": `{"strategy": "teleport"}`,
	}
	for name, body := range tests {
		path := filepath.Join(tmpDir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
		if _, err := LoadSafetyConfig(path); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *SafetyConfig
		wantErr bool
	}{
		{"valid config", DefaultSafetyConfig(), false},
		{"empty config is valid", &SafetyConfig{}, false},
		{"zero ticks", &SafetyConfig{ObstacleTicks: ptrInt(0)}, true},
		{"blindspot out of range", &SafetyConfig{ObstacleTicks: ptrInt(4), Blindspots: []int{4}}, true},
		{"unknown violation", &SafetyConfig{EnabledViolations: []string{"altitude"}}, true},
		{"unknown strategy", &SafetyConfig{Strategy: ptrString("teleport")}, true},
		{"negative clearance", &SafetyConfig{Clearance: ptrFloat64(-1)}, true},
		{"bad duration", &SafetyConfig{TickInterval: ptrString("fast")}, true},
		{"zero tick interval", &SafetyConfig{TickInterval: ptrString("0s")}, true},
		{"zero lookahead time", &SafetyConfig{LookaheadTime: ptrString("0s")}, false},
		{"negative lookahead time", &SafetyConfig{LookaheadTime: ptrString("-1s")}, true},
		{"bad units", &SafetyConfig{SpeedUnits: ptrString("furlongs")}, true},
		{"inverted lookahead", &SafetyConfig{MinLookahead: ptrFloat64(5)}, true},
		{"bad shape", &SafetyConfig{FenceShape: ptrString("sphere")}, true},
		{"zero fence", &SafetyConfig{FenceXYLength: ptrFloat64(0)}, true},
		{"inverted fence", &SafetyConfig{FenceMinAltitude: ptrFloat64(500)}, true},
		{"bad latitude", &SafetyConfig{Home: &geo.Point{Latitude: 91}}, true},
		{"bad longitude", &SafetyConfig{Home: &geo.Point{Longitude: -181}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetDurationsFallBackOnParseError(t *testing.T) {
	cfg := &SafetyConfig{TickInterval: ptrString("soon"), LookaheadTime: ptrString("")}
	assert.Equal(t, 10*time.Millisecond, cfg.GetTickInterval())
	assert.Equal(t, 500*time.Millisecond, cfg.GetLookaheadTime())
}

func TestBuildObstacleMap(t *testing.T) {
	cfg := &SafetyConfig{ObstacleTicks: ptrInt(6), OddBlindspots: ptrBool(true), Blindspots: []int{2}}
	m, err := cfg.BuildObstacleMap()
	require.NoError(t, err)
	assert.Equal(t, 6, m.Ticks())
	for tick, want := range []bool{false, true, true, true, false, true} {
		assert.Equal(t, want, m.IsBlindspot(tick), "tick %d", tick)
	}
}

func TestBuildEvaluator(t *testing.T) {
	cfg := DefaultSafetyConfig()
	cfg.FenceShape = ptrString("cylinder")
	cfg.FenceXYLength = ptrFloat64(10)
	cfg.Strategy = ptrString("closest_move")

	m, err := cfg.BuildObstacleMap()
	require.NoError(t, err)
	e, err := cfg.BuildEvaluator(m)
	require.NoError(t, err)

	assert.Equal(t, safety.ClosestMove, e.ObsAvoidanceStrategy())
	assert.Equal(t, safety.AllViolations(), e.Enabled())
	assert.Equal(t, 10.0, e.Params().MaxSpeed)

	r := e.IsSafeDestination(r3.Vec{X: 20}, r3.Vec{}, geo.Identity)
	assert.False(t, r.IsSafe)
	assert.True(t, r.Reason.Contains(safety.GeoFence))
	assert.Equal(t, geofence.Outside, r.DestFence.Region)
}

func TestBuildEvaluator_BadParams(t *testing.T) {
	cfg := &SafetyConfig{SpeedUnits: ptrString("furlongs")}
	m, err := cfg.BuildObstacleMap()
	require.NoError(t, err)
	_, err = cfg.BuildEvaluator(m)
	assert.Error(t, err)
}
