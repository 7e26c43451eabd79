package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeyong/simsafety/internal/geo"
	"github.com/jeyong/simsafety/internal/safety"
	"github.com/jeyong/simsafety/internal/units"
)

// DefaultConfigPath is the path to the canonical safety defaults file.
const DefaultConfigPath = "config/safety.defaults.json"

// Vec3 is a local NED position in meters.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// SafetyConfig configures the obstacle map, geofence, evaluator and the
// simulation driver. Every field is optional; the Get* methods supply
// defaults for fields left unset, so partial configs are safe.
type SafetyConfig struct {
	// Obstacle map
	ObstacleTicks *int  `json:"obstacle_ticks,omitempty" yaml:"obstacle_ticks,omitempty"`
	OddBlindspots *bool `json:"odd_blindspots,omitempty" yaml:"odd_blindspots,omitempty"`
	Blindspots    []int `json:"blindspots,omitempty" yaml:"blindspots,omitempty"`

	// Evaluator
	EnabledViolations    []string `json:"enabled_violations,omitempty" yaml:"enabled_violations,omitempty"`
	Strategy             *string  `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Clearance            *float64 `json:"clearance,omitempty" yaml:"clearance,omitempty"`
	ObsWindow            *int     `json:"obs_window,omitempty" yaml:"obs_window,omitempty"`
	DistanceAccuracy     *float64 `json:"distance_accuracy,omitempty" yaml:"distance_accuracy,omitempty"`
	LookaheadTime        *string  `json:"lookahead_time,omitempty" yaml:"lookahead_time,omitempty"` // duration string like "500ms"
	MinLookahead         *float64 `json:"min_lookahead,omitempty" yaml:"min_lookahead,omitempty"`
	MaxLookahead         *float64 `json:"max_lookahead,omitempty" yaml:"max_lookahead,omitempty"`
	MaxSpeed             *float64 `json:"max_speed,omitempty" yaml:"max_speed,omitempty"`
	SpeedUnits           *string  `json:"speed_units,omitempty" yaml:"speed_units,omitempty"`
	UncertaintyClearance *float64 `json:"uncertainty_clearance,omitempty" yaml:"uncertainty_clearance,omitempty"`

	// Geofence
	FenceShape       *string  `json:"fence_shape,omitempty" yaml:"fence_shape,omitempty"`
	FenceOrigin      *Vec3    `json:"fence_origin,omitempty" yaml:"fence_origin,omitempty"`
	FenceXYLength    *float64 `json:"fence_xy_length,omitempty" yaml:"fence_xy_length,omitempty"`
	FenceMinAltitude *float64 `json:"fence_min_altitude,omitempty" yaml:"fence_min_altitude,omitempty"`
	FenceMaxAltitude *float64 `json:"fence_max_altitude,omitempty" yaml:"fence_max_altitude,omitempty"`

	// Simulation driver
	Home                 *geo.Point `json:"home,omitempty" yaml:"home,omitempty"`
	VelocityTimeConstant *string    `json:"velocity_time_constant,omitempty" yaml:"velocity_time_constant,omitempty"`
	TickInterval         *string    `json:"tick_interval,omitempty" yaml:"tick_interval,omitempty"`
	JournalPath          *string    `json:"journal_path,omitempty" yaml:"journal_path,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultSafetyConfig returns a config with every field set to its default.
func DefaultSafetyConfig() *SafetyConfig {
	home := defaultHome
	return &SafetyConfig{
		ObstacleTicks:        ptrInt(36),
		OddBlindspots:        ptrBool(false),
		EnabledViolations:    []string{"geofence", "obstacle", "velocity_limit"},
		Strategy:             ptrString("raise_exception"),
		Clearance:            ptrFloat64(safety.DefaultClearance),
		ObsWindow:            ptrInt(0),
		DistanceAccuracy:     ptrFloat64(0.1),
		LookaheadTime:        ptrString("500ms"),
		MinLookahead:         ptrFloat64(1),
		MaxLookahead:         ptrFloat64(3),
		MaxSpeed:             ptrFloat64(10),
		SpeedUnits:           ptrString(units.MPS),
		UncertaintyClearance: ptrFloat64(0),
		FenceShape:           ptrString("cube"),
		FenceOrigin:          &Vec3{},
		FenceXYLength:        ptrFloat64(100),
		FenceMinAltitude:     ptrFloat64(-1),
		FenceMaxAltitude:     ptrFloat64(120),
		Home:                 &home,
		VelocityTimeConstant: ptrString("200ms"),
		TickInterval:         ptrString("10ms"),
		JournalPath:          ptrString(""),
	}
}

var defaultHome = geo.Point{Latitude: 47.641468, Longitude: -122.140165, Altitude: 122}

// LoadSafetyConfig loads a SafetyConfig from a .json, .yaml or .yml file
// under 1MB. Omitted fields fall back to their defaults through the Get*
// methods.
func LoadSafetyConfig(path string) (*SafetyConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &SafetyConfig{}
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents up to the repository
// root. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *SafetyConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadSafetyConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set.
func (c *SafetyConfig) Validate() error {
	if c.ObstacleTicks != nil && *c.ObstacleTicks <= 0 {
		return fmt.Errorf("obstacle_ticks must be positive, got %d", *c.ObstacleTicks)
	}
	ticks := c.GetObstacleTicks()
	for _, b := range c.Blindspots {
		if b < 0 || b >= ticks {
			return fmt.Errorf("blindspot %d outside [0, %d)", b, ticks)
		}
	}

	if _, err := safety.ParseViolationSet(c.EnabledViolations); err != nil {
		return fmt.Errorf("invalid enabled_violations: %w", err)
	}
	if c.Strategy != nil {
		if _, err := safety.ParseStrategy(*c.Strategy); err != nil {
			return fmt.Errorf("invalid strategy: %w", err)
		}
	}
	if c.Clearance != nil && *c.Clearance < 0 {
		return fmt.Errorf("clearance must be non-negative, got %f", *c.Clearance)
	}

	for name, d := range map[string]*string{
		"lookahead_time":         c.LookaheadTime,
		"velocity_time_constant": c.VelocityTimeConstant,
		"tick_interval":          c.TickInterval,
	} {
		if d == nil || *d == "" {
			continue
		}
		v, err := time.ParseDuration(*d)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *d, err)
		}
		if v < 0 || (v == 0 && name != "lookahead_time") {
			return fmt.Errorf("%s must be positive, got %s", name, *d)
		}
	}

	if c.SpeedUnits != nil && !units.IsValid(*c.SpeedUnits) {
		return fmt.Errorf("speed_units must be one of %s, got %q", units.GetValidUnitsString(), *c.SpeedUnits)
	}
	if _, err := c.EvaluatorParams(); err != nil {
		return err
	}

	if c.FenceShape != nil {
		switch *c.FenceShape {
		case "cube", "cylinder":
		default:
			return fmt.Errorf("fence_shape must be cube or cylinder, got %q", *c.FenceShape)
		}
	}
	if c.GetFenceXYLength() <= 0 {
		return fmt.Errorf("fence_xy_length must be positive, got %f", c.GetFenceXYLength())
	}
	if c.GetFenceMinAltitude() > c.GetFenceMaxAltitude() {
		return fmt.Errorf("fence_min_altitude %f exceeds fence_max_altitude %f",
			c.GetFenceMinAltitude(), c.GetFenceMaxAltitude())
	}

	if c.Home != nil {
		if c.Home.Latitude < -90 || c.Home.Latitude > 90 {
			return fmt.Errorf("home latitude must be in [-90, 90], got %f", c.Home.Latitude)
		}
		if c.Home.Longitude < -180 || c.Home.Longitude > 180 {
			return fmt.Errorf("home longitude must be in [-180, 180], got %f", c.Home.Longitude)
		}
	}
	return nil
}

// GetObstacleTicks returns the obstacle_ticks value or the default.
func (c *SafetyConfig) GetObstacleTicks() int {
	if c.ObstacleTicks == nil {
		return 36
	}
	return *c.ObstacleTicks
}

// GetOddBlindspots returns the odd_blindspots value or the default.
func (c *SafetyConfig) GetOddBlindspots() bool {
	if c.OddBlindspots == nil {
		return false
	}
	return *c.OddBlindspots
}

// GetEnabledViolations parses enabled_violations. An empty list enables
// every check.
func (c *SafetyConfig) GetEnabledViolations() safety.ViolationSet {
	if len(c.EnabledViolations) == 0 {
		return safety.AllViolations()
	}
	s, err := safety.ParseViolationSet(c.EnabledViolations)
	if err != nil {
		return safety.AllViolations()
	}
	return s
}

// GetStrategy returns the parsed strategy or RaiseException.
func (c *SafetyConfig) GetStrategy() safety.Strategy {
	if c.Strategy == nil {
		return safety.RaiseException
	}
	s, err := safety.ParseStrategy(*c.Strategy)
	if err != nil {
		return safety.RaiseException
	}
	return s
}

// GetClearance returns the clearance value or the default.
func (c *SafetyConfig) GetClearance() float64 {
	if c.Clearance == nil {
		return safety.DefaultClearance
	}
	return *c.Clearance
}

// GetObsWindow returns the obs_window value or the default.
func (c *SafetyConfig) GetObsWindow() int {
	if c.ObsWindow == nil {
		return 0
	}
	return *c.ObsWindow
}

// GetDistanceAccuracy returns the distance_accuracy value or the default.
func (c *SafetyConfig) GetDistanceAccuracy() float64 {
	if c.DistanceAccuracy == nil {
		return 0.1
	}
	return *c.DistanceAccuracy
}

// GetLookaheadTime parses and returns the LookaheadTime as a time.Duration.
func (c *SafetyConfig) GetLookaheadTime() time.Duration {
	return parseDurationOr(c.LookaheadTime, 500*time.Millisecond)
}

// GetMinLookahead returns the min_lookahead value or the default.
func (c *SafetyConfig) GetMinLookahead() float64 {
	if c.MinLookahead == nil {
		return 1
	}
	return *c.MinLookahead
}

// GetMaxLookahead returns the max_lookahead value or the default.
func (c *SafetyConfig) GetMaxLookahead() float64 {
	if c.MaxLookahead == nil {
		return 3
	}
	return *c.MaxLookahead
}

// GetMaxSpeed returns the max_speed value, in speed_units, or the default.
func (c *SafetyConfig) GetMaxSpeed() float64 {
	if c.MaxSpeed == nil {
		return 10
	}
	return *c.MaxSpeed
}

// GetSpeedUnits returns the speed_units value or the default.
func (c *SafetyConfig) GetSpeedUnits() string {
	if c.SpeedUnits == nil {
		return units.MPS
	}
	return *c.SpeedUnits
}

// GetUncertaintyClearance returns the uncertainty_clearance value or the default.
func (c *SafetyConfig) GetUncertaintyClearance() float64 {
	if c.UncertaintyClearance == nil {
		return 0
	}
	return *c.UncertaintyClearance
}

// GetFenceShape returns the fence_shape value or the default.
func (c *SafetyConfig) GetFenceShape() string {
	if c.FenceShape == nil {
		return "cube"
	}
	return *c.FenceShape
}

// GetFenceOrigin returns the fence_origin value or the default.
func (c *SafetyConfig) GetFenceOrigin() Vec3 {
	if c.FenceOrigin == nil {
		return Vec3{}
	}
	return *c.FenceOrigin
}

// GetFenceXYLength returns the fence_xy_length value or the default.
func (c *SafetyConfig) GetFenceXYLength() float64 {
	if c.FenceXYLength == nil {
		return 100
	}
	return *c.FenceXYLength
}

// GetFenceMinAltitude returns the fence_min_altitude value or the default.
func (c *SafetyConfig) GetFenceMinAltitude() float64 {
	if c.FenceMinAltitude == nil {
		return -1
	}
	return *c.FenceMinAltitude
}

// GetFenceMaxAltitude returns the fence_max_altitude value or the default.
func (c *SafetyConfig) GetFenceMaxAltitude() float64 {
	if c.FenceMaxAltitude == nil {
		return 120
	}
	return *c.FenceMaxAltitude
}

// GetHome returns the home geo point or the default.
func (c *SafetyConfig) GetHome() geo.Point {
	if c.Home == nil {
		return defaultHome
	}
	return *c.Home
}

// GetVelocityTimeConstant parses and returns the VelocityTimeConstant as a time.Duration.
func (c *SafetyConfig) GetVelocityTimeConstant() time.Duration {
	return parseDurationOr(c.VelocityTimeConstant, 200*time.Millisecond)
}

// GetTickInterval parses and returns the TickInterval as a time.Duration.
func (c *SafetyConfig) GetTickInterval() time.Duration {
	return parseDurationOr(c.TickInterval, 10*time.Millisecond)
}

// GetJournalPath returns the journal_path value. Empty disables the journal.
func (c *SafetyConfig) GetJournalPath() string {
	if c.JournalPath == nil {
		return ""
	}
	return *c.JournalPath
}

func parseDurationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def // default on parse error
	}
	return d
}
