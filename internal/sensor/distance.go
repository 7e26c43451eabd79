package sensor

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jeyong/simsafety/internal/geo"
	"github.com/jeyong/simsafety/internal/obstacle"
	"github.com/jeyong/simsafety/internal/tick"
)

// Ranger answers ray queries against the simulated world.
type Ranger interface {
	// Range returns the horizontal distance from origin along dir to the
	// first surface, or +Inf when nothing is hit.
	Range(origin, dir r3.Vec) float64
}

// DistanceParams configure a DistanceSensor. Angles are radians in the body
// frame, clockwise from forward.
type DistanceParams struct {
	MinDistance float64 // m
	MaxDistance float64 // m
	Bearing     float64
	HalfWidth   float64 // half the beam width
	NoiseSigma  float64 // m, zero disables noise
	Seed        uint64
}

// DefaultDistanceParams returns a forward-looking rangefinder.
func DefaultDistanceParams() DistanceParams {
	return DistanceParams{
		MinDistance: 0.2,
		MaxDistance: 40,
		HalfWidth:   math.Pi / 36,
		NoiseSigma:  0.2,
	}
}

// DistanceSensor is a single-beam rangefinder that feeds each reading into
// an obstacle map.
type DistanceSensor struct {
	Base

	params DistanceParams
	ranger Ranger
	sink   *obstacle.Map
	noise  *rand.Rand
	last   float64
}

// NewDistanceSensor creates a rangefinder that casts rays into ranger and
// writes to sink.
func NewDistanceSensor(name string, params DistanceParams, ranger Ranger, sink *obstacle.Map) *DistanceSensor {
	return &DistanceSensor{
		Base:   newBase(name, Distance),
		params: params,
		ranger: ranger,
		sink:   sink,
		noise:  newNoise(params.Seed),
		last:   math.Inf(1),
	}
}

func (d *DistanceSensor) Reset() error {
	if err := d.Base.Reset(); err != nil {
		return err
	}
	d.last = math.Inf(1)
	return nil
}

// Update takes one reading. Readings outside [MinDistance, MaxDistance] are
// reported as +Inf and not written to the map.
func (d *DistanceSensor) Update() error {
	if err := d.Base.Update(); err != nil {
		return err
	}
	kin := d.GroundTruth().Kinematics
	dir := geo.ToWorldFrame(r3.Vec{X: math.Cos(d.params.Bearing), Y: math.Sin(d.params.Bearing)}, kin.Orientation)

	measured := d.ranger.Range(kin.Position, dir)
	if d.params.NoiseSigma > 0 && !math.IsInf(measured, 1) {
		measured += d.noise.NormFloat64() * d.params.NoiseSigma
	}
	if measured < d.params.MinDistance || measured > d.params.MaxDistance {
		d.last = math.Inf(1)
		return nil
	}
	d.last = measured

	if d.sink == nil {
		return nil
	}
	return d.sink.UpdateAngle(d.params.Bearing, d.params.HalfWidth, measured, d.confidence(measured))
}

// confidence falls as the noise becomes large relative to the reading.
func (d *DistanceSensor) confidence(measured float64) float64 {
	if measured <= 0 {
		return 0
	}
	return math.Max(0, 1-d.params.NoiseSigma/measured)
}

// Distance returns the last reading in meters, +Inf when out of range.
func (d *DistanceSensor) Distance() float64 { return d.last }

func (d *DistanceSensor) ReportState(r tick.Reporter) {
	r.Value("distance", d.last)
}

// Pillar is a vertical cylinder standing in the world.
type Pillar struct {
	Center r3.Vec
	Radius float64
}

// Scene is a Ranger over a set of pillars of unbounded height.
type Scene struct {
	Pillars []Pillar
}

func (s *Scene) Range(origin, dir r3.Vec) float64 {
	dx, dy := dir.X, dir.Y
	n := math.Hypot(dx, dy)
	if n == 0 {
		return math.Inf(1)
	}
	dx, dy = dx/n, dy/n

	best := math.Inf(1)
	for _, p := range s.Pillars {
		ox, oy := origin.X-p.Center.X, origin.Y-p.Center.Y
		c := ox*ox + oy*oy - p.Radius*p.Radius
		if c <= 0 {
			return 0
		}
		b := ox*dx + oy*dy
		disc := b*b - c
		if disc < 0 {
			continue
		}
		if t := -b - math.Sqrt(disc); t >= 0 && t < best {
			best = t
		}
	}
	return best
}
