// Package environment models the position-dependent atmosphere and gravity
// around a simulated vehicle.
//
// Derived fields are a pure function of the local position and the home geo
// point. SetPosition only stores the position; Update recomputes the rest.
package environment

import (
	"github.com/jeyong/simsafety/internal/geo"
	"github.com/jeyong/simsafety/internal/tick"
	"gonum.org/v1/gonum/spatial/r3"
)

// State is a snapshot of the environment at one position.
type State struct {
	// set by the caller
	Position r3.Vec    // local NED, meters
	GeoPoint geo.Point // recomputed from Position on Update

	// derived
	Gravity     r3.Vec  // m/s^2, NED
	AirPressure float64 // Pa
	Temperature float64 // K
	AirDensity  float64 // kg/m^3
}

// Environment implements tick.Tickable.
type Environment struct {
	tick.Lifecycle

	initial State
	current State
	home    geo.HomePoint
}

// New creates an environment from an initial position and geo point. The
// initial geo point also becomes the home reference.
func New(initial State) *Environment {
	e := &Environment{}
	e.Initialize(initial)
	return e
}

// Initialize stores the initial state, takes its geo point as home and
// computes the derived fields once.
func (e *Environment) Initialize(initial State) {
	e.SetHomeGeoPoint(initial.GeoPoint)
	compute(&initial, e.home)
	e.initial = initial
	e.current = initial
	e.ClearLifecycle()
}

// SetHomeGeoPoint changes the reference frame used by subsequent updates.
func (e *Environment) SetHomeGeoPoint(p geo.Point) {
	e.home = geo.NewHomePoint(p)
}

// HomeGeoPoint returns the reference frame origin.
func (e *Environment) HomeGeoPoint() geo.Point {
	return e.home.Point
}

// SetPosition stores a new local position without recomputing derived fields.
func (e *Environment) SetPosition(p r3.Vec) {
	e.current.Position = p
}

// InitialState returns the snapshot Reset restores.
func (e *Environment) InitialState() State { return e.initial }

// State returns the current state.
func (e *Environment) State() State { return e.current }

// Reset restores the initial snapshot, derived fields included.
func (e *Environment) Reset() error {
	if err := e.Lifecycle.Reset(); err != nil {
		return err
	}
	e.current = e.initial
	return nil
}

// Update recomputes every derived field from the current position.
func (e *Environment) Update() error {
	if err := e.Lifecycle.Update(); err != nil {
		return err
	}
	compute(&e.current, e.home)
	return nil
}

// ReportState implements tick.Tickable.
func (e *Environment) ReportState(r tick.Reporter) {
	r.Value("position", e.current.Position)
	r.Value("geo_point", e.current.GeoPoint.String())
	r.Value("gravity", e.current.Gravity)
	r.Value("air_pressure", e.current.AirPressure)
	r.Value("temperature", e.current.Temperature)
	r.Value("air_density", e.current.AirDensity)
}

// compute fills the derived fields of s from s.Position and home.
func compute(s *State, home geo.HomePoint) {
	s.GeoPoint = geo.LocalToGeodetic(s.Position, home)

	geoPot := geo.GeopotentialAltitude(s.GeoPoint.Altitude)
	s.Temperature = geo.StandardTemperature(geoPot)
	s.AirPressure = geo.StandardPressure(geoPot, s.Temperature)
	s.AirDensity = geo.AirDensity(s.AirPressure, s.Temperature)
	s.Gravity = geo.Gravity(s.GeoPoint.Altitude)
}
