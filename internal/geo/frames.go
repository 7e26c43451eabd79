package geo

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Identity is the orientation of a body aligned with the world frame.
var Identity = r3.Rotation{Real: 1}

// YawRotation returns the orientation of a level body heading yaw radians
// clockwise from north.
func YawRotation(yaw float64) r3.Rotation {
	return r3.NewRotation(yaw, r3.Vec{Z: 1})
}

// normalize guards against quaternions that drifted from unit length.
// A zero quaternion is treated as identity.
func normalize(q r3.Rotation) r3.Rotation {
	n := quat.Number(q)
	abs := quat.Abs(n)
	if abs == 0 || math.IsNaN(abs) {
		return Identity
	}
	return r3.Rotation(quat.Scale(1/abs, n))
}

// ToBodyFrame expresses a world-frame vector in the body frame of a vehicle
// with orientation q (body to world).
func ToBodyFrame(v r3.Vec, q r3.Rotation) r3.Vec {
	q = normalize(q)
	return r3.Rotation(quat.Conj(quat.Number(q))).Rotate(v)
}

// ToWorldFrame expresses a body-frame vector in the world frame.
func ToWorldFrame(v r3.Vec, q r3.Rotation) r3.Vec {
	return normalize(q).Rotate(v)
}

// BodyAngle returns the horizontal bearing of a body-frame vector, measured
// clockwise from the forward axis, in (-pi, pi].
func BodyAngle(v r3.Vec) float64 {
	return math.Atan2(v.Y, v.X)
}

// HorizontalNorm is the length of the x-y projection of v.
func HorizontalNorm(v r3.Vec) float64 {
	return math.Hypot(v.X, v.Y)
}
