package safety

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParams is returned when vehicle parameters are out of range.
var ErrInvalidParams = errors.New("invalid safety parameters")

// DefaultClearance is the obstacle clearance used until SetSafety is called.
const DefaultClearance = 2.0

// Params describe the vehicle as seen by the evaluator. Distances are in
// meters, speeds in meters per second.
type Params struct {
	// DistanceAccuracy is the horizontal travel below which a destination
	// counts as hovering in place.
	DistanceAccuracy float64

	// Velocity queries project the destination speed*LookaheadTime ahead,
	// clamped to [MinLookahead, MaxLookahead].
	LookaheadTime float64
	MinLookahead  float64
	MaxLookahead  float64

	// MaxSpeed is the limit for the VelocityLimit check. Zero disables it.
	MaxSpeed float64

	// ObsWindow is the number of obstacle map ticks either side of the
	// travel direction that are searched.
	ObsWindow int

	// UncertaintyClearance is extra clearance added per unit of missing
	// confidence: a reading with confidence c gets UncertaintyClearance*(1-c).
	UncertaintyClearance float64
}

// DefaultParams returns parameters for a small multirotor.
func DefaultParams() Params {
	return Params{
		DistanceAccuracy: 0.1,
		LookaheadTime:    0.5,
		MinLookahead:     1,
		MaxLookahead:     3,
	}
}

// Validate checks that every parameter is finite and non-negative and that
// the lookahead range is ordered.
func (p Params) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"distance_accuracy", p.DistanceAccuracy},
		{"lookahead_time", p.LookaheadTime},
		{"min_lookahead", p.MinLookahead},
		{"max_lookahead", p.MaxLookahead},
		{"max_speed", p.MaxSpeed},
		{"uncertainty_clearance", p.UncertaintyClearance},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return fmt.Errorf("%w: %s must be finite and non-negative, got %g", ErrInvalidParams, f.name, f.v)
		}
	}
	if p.MinLookahead > p.MaxLookahead {
		return fmt.Errorf("%w: min_lookahead %g exceeds max_lookahead %g", ErrInvalidParams, p.MinLookahead, p.MaxLookahead)
	}
	if p.ObsWindow < 0 {
		return fmt.Errorf("%w: obs_window must not be negative, got %d", ErrInvalidParams, p.ObsWindow)
	}
	return nil
}

// lookahead is the distance projected ahead at the given speed.
func (p Params) lookahead(speed float64) float64 {
	return math.Min(math.Max(speed*p.LookaheadTime, p.MinLookahead), p.MaxLookahead)
}
