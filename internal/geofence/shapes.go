package geofence

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Cube is a box centred on its origin, extending xyLength to either side in
// x and y.
type Cube struct {
	b boundary
}

// NewCube returns a cube zone with the given boundary.
func NewCube(origin r3.Vec, xyLength, minAltitude, maxAltitude float64) (*Cube, error) {
	c := &Cube{}
	if err := c.SetBoundary(origin, xyLength, minAltitude, maxAltitude); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cube) SetBoundary(origin r3.Vec, xyLength, minAltitude, maxAltitude float64) error {
	return c.b.set(origin, xyLength, minAltitude, maxAltitude)
}

func (c *Cube) Classify(p r3.Vec) Classification {
	if c.b.empty() {
		return outsideEmpty()
	}
	return classify(
		math.Abs(p.X-c.b.origin.X)-c.b.xyLength,
		math.Abs(p.Y-c.b.origin.Y)-c.b.xyLength,
		c.b.verticalSigned(p),
	)
}

func (c *Cube) String() string {
	return fmt.Sprintf("cube(origin=%v, half=%g, alt=[%g, %g])",
		c.b.origin, c.b.xyLength, c.b.minAltitude, c.b.maxAltitude)
}

// Cylinder is a vertical cylinder of radius xyLength around its origin.
type Cylinder struct {
	b boundary
}

// NewCylinder returns a cylinder zone with the given boundary.
func NewCylinder(origin r3.Vec, radius, minAltitude, maxAltitude float64) (*Cylinder, error) {
	c := &Cylinder{}
	if err := c.SetBoundary(origin, radius, minAltitude, maxAltitude); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cylinder) SetBoundary(origin r3.Vec, radius, minAltitude, maxAltitude float64) error {
	return c.b.set(origin, radius, minAltitude, maxAltitude)
}

func (c *Cylinder) Classify(p r3.Vec) Classification {
	if c.b.empty() {
		return outsideEmpty()
	}
	r := math.Hypot(p.X-c.b.origin.X, p.Y-c.b.origin.Y)
	return classify(r-c.b.xyLength, c.b.verticalSigned(p))
}

func (c *Cylinder) String() string {
	return fmt.Sprintf("cylinder(origin=%v, radius=%g, alt=[%g, %g])",
		c.b.origin, c.b.xyLength, c.b.minAltitude, c.b.maxAltitude)
}

// New returns an empty zone of the named shape ("cube" or "cylinder").
// SetBoundary must be called before Classify; an empty zone contains nothing
// and classifies every point as Outside at an infinite distance.
func New(shape string) (GeoFence, error) {
	switch shape {
	case "cube", "":
		return &Cube{}, nil
	case "cylinder":
		return &Cylinder{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, shape)
	}
}
