package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jeyong/simsafety/internal/config"
	"github.com/jeyong/simsafety/internal/environment"
	"github.com/jeyong/simsafety/internal/filter"
	"github.com/jeyong/simsafety/internal/geo"
	"github.com/jeyong/simsafety/internal/journal"
	"github.com/jeyong/simsafety/internal/obstacle"
	"github.com/jeyong/simsafety/internal/safety"
	"github.com/jeyong/simsafety/internal/sensor"
	"github.com/jeyong/simsafety/internal/tick"
	"github.com/jeyong/simsafety/internal/timeutil"
)

// options control one simulation run.
type options struct {
	Steps       int
	Speed       float64 // commanded ground speed, m/s
	Heading     float64 // radians clockwise from north
	Beams       int     // rangefinders spread evenly around the body
	Debug       bool
	JournalPath string
}

func defaultOptions() options {
	return options{Steps: 600, Speed: 5, Beams: 8}
}

// summary is what a run reports when it finishes.
type summary struct {
	Steps      int
	Unsafe     int
	Suggested  int
	Stopped    bool    // a RaiseException verdict forced a hard stop
	MinCurRisk float64 // NaN when no finite risk was seen
	Final      r3.Vec
}

func (s summary) String() string {
	return fmt.Sprintf("steps=%d unsafe=%d suggested=%d stopped=%t min_cur_risk=%.3f final=(%.2f, %.2f, %.2f)",
		s.Steps, s.Unsafe, s.Suggested, s.Stopped, s.MinCurRisk, s.Final.X, s.Final.Y, s.Final.Z)
}

// defaultScene places a single pillar 20 m north of home.
func defaultScene() *sensor.Scene {
	return &sensor.Scene{Pillars: []sensor.Pillar{
		{Center: r3.Vec{X: 20}, Radius: 2},
	}}
}

// vehicle integrates the filtered velocity into the shared kinematics and
// moves the environment with it.
type vehicle struct {
	tick.Lifecycle

	kin      *sensor.Kinematics
	initial  sensor.Kinematics
	velocity *filter.FirstOrder[r3.Vec]
	env      *environment.Environment
	last     time.Time
}

func (v *vehicle) Reset() error {
	if err := v.Lifecycle.Reset(); err != nil {
		return err
	}
	*v.kin = v.initial
	v.last = v.Clock().Now()
	return nil
}

func (v *vehicle) Update() error {
	if err := v.Lifecycle.Update(); err != nil {
		return err
	}
	now := v.Clock().Now()
	dt := now.Sub(v.last).Seconds()
	v.last = now

	vel := v.velocity.Output()
	if dt > 0 {
		v.kin.LinearAcceleration = r3.Scale(1/dt, r3.Sub(vel, v.kin.LinearVelocity))
	}
	v.kin.LinearVelocity = vel
	v.kin.Position = r3.Add(v.kin.Position, r3.Scale(dt, vel))
	v.env.SetPosition(v.kin.Position)
	return nil
}

func (v *vehicle) ReportState(r tick.Reporter) {
	r.Value("position", v.kin.Position)
	r.Value("velocity", v.kin.LinearVelocity)
}

// simulation owns every ticked object of one run.
type simulation struct {
	cfg      *config.SafetyConfig
	clock    timeutil.Clock
	kin      *sensor.Kinematics
	velocity *filter.FirstOrder[r3.Vec]
	obs      *obstacle.Map
	eval     *safety.Evaluator
	group    *tick.Group
	journal  *journal.Journal
}

func newSimulation(cfg *config.SafetyConfig, clock timeutil.Clock, scene *sensor.Scene, opts options) (*simulation, error) {
	obs, err := cfg.BuildObstacleMap()
	if err != nil {
		return nil, fmt.Errorf("obstacle map: %w", err)
	}
	eval, err := cfg.BuildEvaluator(obs)
	if err != nil {
		return nil, fmt.Errorf("evaluator: %w", err)
	}
	eval.SetDebug(opts.Debug)

	velocity, err := filter.NewVec(cfg.GetVelocityTimeConstant().Seconds(), r3.Vec{}, r3.Vec{})
	if err != nil {
		return nil, fmt.Errorf("velocity filter: %w", err)
	}

	home := cfg.GetHome()
	env := environment.New(environment.State{GeoPoint: home})

	kin := &sensor.Kinematics{}
	veh := &vehicle{
		kin:      kin,
		initial:  sensor.Kinematics{Orientation: geo.YawRotation(opts.Heading)},
		velocity: velocity,
		env:      env,
	}

	group := tick.NewGroup()
	group.Add("velocity", velocity)
	group.Add("vehicle", veh)
	group.Add("environment", env)

	sensors, err := sensor.NewRegistry(scene, obs).CreateAll(sensorSettings(opts.Beams))
	if err != nil {
		return nil, err
	}
	for _, s := range sensors {
		s.Initialize(kin, env)
		group.Add(s.Name(), s)
	}

	if err := group.SetClock(clock); err != nil {
		return nil, err
	}

	s := &simulation{
		cfg:      cfg,
		clock:    clock,
		kin:      kin,
		velocity: velocity,
		obs:      obs,
		eval:     eval,
		group:    group,
	}
	if opts.JournalPath != "" {
		j, err := journal.Open(opts.JournalPath, clock)
		if err != nil {
			return nil, err
		}
		s.journal = j
	}
	return s, nil
}

// sensorSettings spreads n rangefinders evenly around the body and adds a
// barometer.
func sensorSettings(n int) []sensor.Setting {
	settings := []sensor.Setting{{
		Name:      "barometer",
		Kind:      sensor.Barometer,
		Enabled:   true,
		Barometer: sensor.DefaultBarometerParams(),
	}}
	for i := 0; i < n; i++ {
		p := sensor.DefaultDistanceParams()
		p.Bearing = 2 * math.Pi * float64(i) / float64(n)
		p.HalfWidth = math.Pi / float64(n)
		p.Seed = uint64(i + 1)
		settings = append(settings, sensor.Setting{
			Name:     fmt.Sprintf("range%d", i),
			Kind:     sensor.Distance,
			Enabled:  true,
			Distance: p,
		})
	}
	return settings
}

func (s *simulation) Close() error {
	if s.journal != nil {
		return s.journal.Close()
	}
	return nil
}

// run resets every object and then ticks opts.Steps times. A MockClock is
// advanced by the tick interval; any other clock paces the loop with a
// ticker.
func (s *simulation) run(ctx context.Context, opts options) (summary, error) {
	var sum summary
	if err := s.group.Reset(); err != nil {
		return sum, err
	}

	interval := s.cfg.GetTickInterval()
	mock, _ := s.clock.(*timeutil.MockClock)
	var ticker timeutil.Ticker
	if mock == nil {
		ticker = s.clock.NewTicker(interval)
		defer ticker.Stop()
	}

	desired := r3.Scale(opts.Speed, r3.Vec{X: math.Cos(opts.Heading), Y: math.Sin(opts.Heading)})
	command := desired
	var risks []float64

	for i := 0; i < opts.Steps; i++ {
		if mock != nil {
			select {
			case <-ctx.Done():
				return sum, ctx.Err()
			default:
			}
			mock.Advance(interval)
		} else {
			select {
			case <-ctx.Done():
				return sum, ctx.Err()
			case <-ticker.C():
			}
		}

		s.obs.Clear()
		s.velocity.SetInput(command)
		if err := s.group.Update(); err != nil {
			return sum, err
		}
		sum.Steps++

		if sum.Stopped {
			command = r3.Vec{}
			continue
		}

		r := s.eval.IsSafeVelocity(s.kin.Position, desired, s.kin.Orientation)
		if !math.IsNaN(r.CurRiskDist) && !math.IsInf(r.CurRiskDist, 0) {
			risks = append(risks, r.CurRiskDist)
		}
		if s.journal != nil {
			if _, err := s.journal.Record("velocity", r); err != nil {
				return sum, err
			}
		}

		switch {
		case r.IsSafe:
			command = desired
		case s.eval.ObsAvoidanceStrategy() == safety.RaiseException:
			sum.Unsafe++
			sum.Stopped = true
			command = r3.Vec{}
			log.Printf("hard stop at step %d: %v", i, r.Err())
		case r.HasSuggestion():
			sum.Unsafe++
			sum.Suggested++
			command = r3.Scale(opts.Speed, r.SuggestedVec)
		default:
			sum.Unsafe++
			command = r3.Vec{}
		}
	}

	sum.MinCurRisk = math.NaN()
	if len(risks) > 0 {
		sum.MinCurRisk = floats.Min(risks)
	}
	sum.Final = s.kin.Position
	return sum, nil
}

// report dumps the state of every ticked object.
func (s *simulation) report() string {
	var r tick.TextReporter
	s.group.ReportState(&r)
	return r.String()
}
