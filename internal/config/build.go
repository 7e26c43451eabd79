package config

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jeyong/simsafety/internal/geofence"
	"github.com/jeyong/simsafety/internal/obstacle"
	"github.com/jeyong/simsafety/internal/safety"
	"github.com/jeyong/simsafety/internal/units"
)

// EvaluatorParams converts the evaluator settings, with max_speed in m/s.
func (c *SafetyConfig) EvaluatorParams() (safety.Params, error) {
	maxSpeed, err := units.ToMPS(c.GetMaxSpeed(), c.GetSpeedUnits())
	if err != nil {
		return safety.Params{}, err
	}
	p := safety.Params{
		DistanceAccuracy:     c.GetDistanceAccuracy(),
		LookaheadTime:        c.GetLookaheadTime().Seconds(),
		MinLookahead:         c.GetMinLookahead(),
		MaxLookahead:         c.GetMaxLookahead(),
		MaxSpeed:             maxSpeed,
		ObsWindow:            c.GetObsWindow(),
		UncertaintyClearance: c.GetUncertaintyClearance(),
	}
	if err := p.Validate(); err != nil {
		return safety.Params{}, err
	}
	return p, nil
}

// BuildObstacleMap creates the obstacle map with its configured blind spots.
func (c *SafetyConfig) BuildObstacleMap() (*obstacle.Map, error) {
	m, err := obstacle.New(c.GetObstacleTicks(), c.GetOddBlindspots())
	if err != nil {
		return nil, err
	}
	for _, b := range c.Blindspots {
		m.SetBlindspot(b, true)
	}
	return m, nil
}

// BuildGeoFence creates an empty zone of the configured shape. The boundary
// is applied by BuildEvaluator through SetSafety.
func (c *SafetyConfig) BuildGeoFence() (geofence.GeoFence, error) {
	return geofence.New(c.GetFenceShape())
}

// BuildEvaluator wires an evaluator to m and applies the configured checks,
// clearance, strategy and fence boundary.
func (c *SafetyConfig) BuildEvaluator(m *obstacle.Map) (*safety.Evaluator, error) {
	params, err := c.EvaluatorParams()
	if err != nil {
		return nil, err
	}
	fence, err := c.BuildGeoFence()
	if err != nil {
		return nil, err
	}
	e, err := safety.New(params, fence, m)
	if err != nil {
		return nil, err
	}
	o := c.GetFenceOrigin()
	err = e.SetSafety(c.GetEnabledViolations(), c.GetClearance(), c.GetStrategy(),
		r3.Vec{X: o.X, Y: o.Y, Z: o.Z}, c.GetFenceXYLength(), c.GetFenceMinAltitude(), c.GetFenceMaxAltitude())
	if err != nil {
		return nil, fmt.Errorf("configure evaluator: %w", err)
	}
	return e, nil
}
