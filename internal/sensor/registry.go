package sensor

import (
	"errors"
	"fmt"

	"github.com/jeyong/simsafety/internal/obstacle"
)

// ErrUnknownKind is returned when no constructor is registered for a kind.
var ErrUnknownKind = errors.New("unknown sensor kind")

// Setting describes one sensor to build. Only the params matching Kind are
// used.
type Setting struct {
	Name      string
	Kind      Kind
	Enabled   bool
	Barometer BarometerParams
	Distance  DistanceParams
}

// Constructor builds a sensor from its setting.
type Constructor func(s Setting) (Sensor, error)

// Registry maps kinds to constructors.
type Registry struct {
	ctors map[Kind]Constructor
}

// NewRegistry returns a registry with the built-in barometer and distance
// sensors. Distance sensors cast rays into ranger and write to sink.
func NewRegistry(ranger Ranger, sink *obstacle.Map) *Registry {
	r := &Registry{ctors: make(map[Kind]Constructor)}
	r.Register(Barometer, func(s Setting) (Sensor, error) {
		return NewBarometerSensor(s.Name, s.Barometer)
	})
	r.Register(Distance, func(s Setting) (Sensor, error) {
		if ranger == nil {
			return nil, fmt.Errorf("distance sensor %q needs a ranger", s.Name)
		}
		return NewDistanceSensor(s.Name, s.Distance, ranger, sink), nil
	})
	return r
}

// Register adds or replaces the constructor for k.
func (r *Registry) Register(k Kind, c Constructor) {
	r.ctors[k] = c
}

// Create builds one sensor.
func (r *Registry) Create(s Setting) (Sensor, error) {
	c, ok := r.ctors[s.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %v (sensor %q)", ErrUnknownKind, s.Kind, s.Name)
	}
	return c(s)
}

// CreateAll builds every enabled sensor in order. Disabled settings are
// skipped; the first failure aborts.
func (r *Registry) CreateAll(settings []Setting) ([]Sensor, error) {
	var out []Sensor
	for _, s := range settings {
		if !s.Enabled {
			continue
		}
		sensor, err := r.Create(s)
		if err != nil {
			return nil, err
		}
		out = append(out, sensor)
	}
	return out, nil
}
