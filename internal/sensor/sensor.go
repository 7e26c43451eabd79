// Package sensor is the boundary between the simulation core and the sensor
// models that read from it.
//
// A sensor is constructed, then Initialize hands it read-only references to
// the vehicle kinematics and the environment (its ground truth), then Reset
// makes it ready to Update. Constructors must not depend on ground truth.
package sensor

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jeyong/simsafety/internal/environment"
	"github.com/jeyong/simsafety/internal/tick"
)

// ErrNotInitialized is returned by Reset when Initialize was never called.
var ErrNotInitialized = errors.New("sensor has no ground truth")

// Kind identifies a sensor model.
type Kind uint

const (
	Barometer Kind = iota + 1
	Imu
	Gps
	Magnetometer
	Distance
	Lidar
)

var kindNames = map[Kind]string{
	Barometer:    "barometer",
	Imu:          "imu",
	Gps:          "gps",
	Magnetometer: "magnetometer",
	Distance:     "distance",
	Lidar:        "lidar",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint(k))
}

// ParseKind is case-insensitive.
func ParseKind(name string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == key {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Kinematics is the true motion state of the vehicle in the local NED frame.
type Kinematics struct {
	Position    r3.Vec
	Orientation r3.Rotation // body to world

	LinearVelocity      r3.Vec
	AngularVelocity     r3.Vec
	LinearAcceleration  r3.Vec
	AngularAcceleration r3.Vec
}

// GroundTruth can be shared between many sensors. Sensors never write
// through it.
type GroundTruth struct {
	Kinematics  *Kinematics
	Environment *environment.Environment
}

// Sensor is implemented by every sensor model.
type Sensor interface {
	tick.Tickable
	Name() string
	Kind() Kind
	Initialize(kinematics *Kinematics, env *environment.Environment)
	GroundTruth() GroundTruth
}

// Base carries the name, kind and ground truth common to every sensor.
// Concrete sensors embed it and call its Reset and Update first.
type Base struct {
	tick.Lifecycle

	name string
	kind Kind
	gt   GroundTruth
}

func newBase(name string, kind Kind) Base {
	if name == "" {
		name = kind.String()
	}
	return Base{name: name, kind: kind}
}

// Initialize stores the ground truth references.
func (b *Base) Initialize(kinematics *Kinematics, env *environment.Environment) {
	b.gt = GroundTruth{Kinematics: kinematics, Environment: env}
}

func (b *Base) GroundTruth() GroundTruth { return b.gt }

func (b *Base) Name() string { return b.name }

func (b *Base) Kind() Kind { return b.kind }

// Reset fails with ErrNotInitialized before Initialize.
func (b *Base) Reset() error {
	if b.gt.Kinematics == nil || b.gt.Environment == nil {
		return fmt.Errorf("%s: %w", b.name, ErrNotInitialized)
	}
	return b.Lifecycle.Reset()
}

// newNoise returns a deterministic generator for a sensor's noise.
func newNoise(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
