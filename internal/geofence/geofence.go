// Package geofence classifies points against a safe flight zone.
//
// Positions are in the local NED frame, so altitude is -z. Altitude limits
// are relative to the zone origin.
package geofence

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidBoundary is returned when a zone has a non-positive horizontal
// extent or an inverted altitude band.
var ErrInvalidBoundary = errors.New("invalid geofence boundary")

// ErrUnknownShape is returned by New for an unrecognised shape name.
var ErrUnknownShape = errors.New("unknown geofence shape")

// Region says which side of the boundary a point is on.
type Region int

const (
	Outside Region = iota
	Inside
)

func (r Region) String() string {
	if r == Inside {
		return "inside"
	}
	return "outside"
}

// Classification is the result of testing a point against a zone.
// Distance is the distance to the nearest boundary surface, never negative.
type Classification struct {
	Region   Region
	Distance float64
}

func (c Classification) Inside() bool { return c.Region == Inside }

// GeoFence is implemented by every zone shape.
type GeoFence interface {
	Classify(p r3.Vec) Classification
	SetBoundary(origin r3.Vec, xyLength, minAltitude, maxAltitude float64) error
}

// boundary holds the parameters shared by every shape.
type boundary struct {
	origin      r3.Vec
	xyLength    float64
	minAltitude float64
	maxAltitude float64
}

func (b *boundary) set(origin r3.Vec, xyLength, minAltitude, maxAltitude float64) error {
	if !(xyLength > 0) || math.IsInf(xyLength, 0) {
		return fmt.Errorf("%w: xy length %g", ErrInvalidBoundary, xyLength)
	}
	if math.IsNaN(minAltitude) || math.IsNaN(maxAltitude) || minAltitude > maxAltitude {
		return fmt.Errorf("%w: altitude band [%g, %g]", ErrInvalidBoundary, minAltitude, maxAltitude)
	}
	*b = boundary{origin: origin, xyLength: xyLength, minAltitude: minAltitude, maxAltitude: maxAltitude}
	return nil
}

// empty reports whether no boundary has been set. set never accepts a zero
// extent, so the zero value is the only empty boundary.
func (b *boundary) empty() bool { return b.xyLength == 0 }

// outsideEmpty is the classification of every point against an empty zone.
func outsideEmpty() Classification {
	return Classification{Region: Outside, Distance: math.Inf(1)}
}

// altitude returns the height of p above the zone origin.
func (b *boundary) altitude(p r3.Vec) float64 {
	return b.origin.Z - p.Z
}

// classify combines per-axis signed distances, where a negative value means
// the point is inside along that axis by that margin.
func classify(signed ...float64) Classification {
	inside := true
	margin := math.Inf(1)
	var excess float64
	for _, s := range signed {
		if s > 0 {
			inside = false
			excess += s * s
		} else if -s < margin {
			margin = -s
		}
	}
	if inside {
		return Classification{Region: Inside, Distance: margin}
	}
	return Classification{Region: Outside, Distance: math.Sqrt(excess)}
}

func (b *boundary) verticalSigned(p r3.Vec) float64 {
	alt := b.altitude(p)
	return math.Max(b.minAltitude-alt, alt-b.maxAltitude)
}
