// Package safety decides whether a commanded velocity or destination is safe
// against the geofence, the obstacle map and the vehicle's speed limit, and
// proposes a corrective direction when an obstacle is in the way.
//
// All positions are in the local NED frame. Orientations rotate the body
// frame into the world frame.
package safety

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jeyong/simsafety/internal/geo"
	"github.com/jeyong/simsafety/internal/geofence"
	"github.com/jeyong/simsafety/internal/monitoring"
	"github.com/jeyong/simsafety/internal/obstacle"
)

var (
	// ErrNilObstacleMap is returned by New without an obstacle map.
	ErrNilObstacleMap = errors.New("obstacle map is required")

	// ErrNilGeoFence is returned by New without a geofence.
	ErrNilGeoFence = errors.New("geofence is required")
)

var logf = monitoring.Component("SafetyEval")

type settings struct {
	enabled   ViolationSet
	clearance float64
	strategy  Strategy
}

// Evaluator shares the obstacle map and geofence with their producers and
// owns only its configuration. Queries may run concurrently with each other;
// configuration calls wait for running queries.
type Evaluator struct {
	params Params
	fence  geofence.GeoFence
	obs    *obstacle.Map

	mu    sync.RWMutex
	cfg   settings
	debug bool
}

// New returns an evaluator with only the GeoFence check enabled, the
// default clearance and the RaiseException strategy.
func New(params Params, fence geofence.GeoFence, obs *obstacle.Map) (*Evaluator, error) {
	if obs == nil {
		return nil, ErrNilObstacleMap
	}
	if fence == nil {
		return nil, ErrNilGeoFence
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{
		params: params,
		fence:  fence,
		obs:    obs,
		cfg: settings{
			enabled:   NewViolationSet(GeoFence),
			clearance: DefaultClearance,
			strategy:  RaiseException,
		},
	}, nil
}

// Params returns the vehicle parameters the evaluator was built with.
func (e *Evaluator) Params() Params { return e.params }

// SetSafety replaces the enabled checks, the obstacle clearance, the
// avoidance strategy and the geofence boundary in one step. Nothing changes
// if any argument is rejected.
func (e *Evaluator) SetSafety(enabled ViolationSet, clearance float64, strategy Strategy,
	origin r3.Vec, xyLength, minAltitude, maxAltitude float64) error {
	if math.IsNaN(clearance) || math.IsInf(clearance, 0) || clearance < 0 {
		return fmt.Errorf("%w: clearance must be finite and non-negative, got %g", ErrInvalidParams, clearance)
	}
	if !strategy.valid() {
		return fmt.Errorf("%w: %v", ErrUnknownStrategy, strategy)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.fence.SetBoundary(origin, xyLength, minAltitude, maxAltitude); err != nil {
		return fmt.Errorf("set safety: %w", err)
	}
	e.cfg = settings{enabled: enabled, clearance: clearance, strategy: strategy}
	logf("enabled=%v clearance=%g strategy=%v fence origin=%v xy=%g alt=[%g, %g]",
		enabled, clearance, strategy, origin, xyLength, minAltitude, maxAltitude)
	return nil
}

// Enabled returns the checks currently enabled.
func (e *Evaluator) Enabled() ViolationSet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.enabled
}

// Clearance returns the current obstacle clearance in meters.
func (e *Evaluator) Clearance() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.clearance
}

func (e *Evaluator) SetObsAvoidanceStrategy(s Strategy) error {
	if !s.valid() {
		return fmt.Errorf("%w: %v", ErrUnknownStrategy, s)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cfg.strategy != s {
		logf("strategy %v -> %v", e.cfg.strategy, s)
	}
	e.cfg.strategy = s
	return nil
}

func (e *Evaluator) ObsAvoidanceStrategy() Strategy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.strategy
}

// OverrideStrategy switches to s and returns a function restoring the
// previous strategy. An invalid s leaves the strategy unchanged.
func (e *Evaluator) OverrideStrategy(s Strategy) (restore func()) {
	prev := e.ObsAvoidanceStrategy()
	if err := e.SetObsAvoidanceStrategy(s); err != nil {
		logf("override ignored: %v", err)
		return func() {}
	}
	return func() {
		// prev was valid when read
		_ = e.SetObsAvoidanceStrategy(prev)
	}
}

// SetDebug turns logging of unsafe verdicts on or off.
func (e *Evaluator) SetDebug(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.debug = on
}

// IsSafeVelocity checks the point reached by flying along velocity for the
// lookahead distance.
func (e *Evaluator) IsSafeVelocity(cur, velocity r3.Vec, orientation r3.Rotation) EvalResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	dest := e.destination(cur, velocity)
	r := e.evaluate(dest, cur, orientation)
	e.checkSpeed(&r, r3.Norm(velocity))
	e.finish(&r)
	return r
}

// IsSafeVelocityZ is IsSafeVelocity for a horizontal velocity with an
// absolute target z in place of a vertical velocity.
func (e *Evaluator) IsSafeVelocityZ(cur r3.Vec, vx, vy, z float64, orientation r3.Rotation) EvalResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	dest := e.destination(cur, r3.Vec{X: vx, Y: vy})
	dest.Z = z
	r := e.evaluate(dest, cur, orientation)
	e.checkSpeed(&r, math.Hypot(vx, vy))
	e.finish(&r)
	return r
}

// IsSafeDestination checks travel from cur to dest.
func (e *Evaluator) IsSafeDestination(dest, cur r3.Vec, orientation r3.Rotation) EvalResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	r := e.evaluate(dest, cur, orientation)
	e.finish(&r)
	return r
}

// IsSafePosition checks staying at cur.
func (e *Evaluator) IsSafePosition(cur r3.Vec, orientation r3.Rotation) EvalResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	r := e.evaluate(cur, cur, orientation)
	e.finish(&r)
	return r
}

// destination projects cur along velocity by the lookahead distance.
func (e *Evaluator) destination(cur, velocity r3.Vec) r3.Vec {
	speed := r3.Norm(velocity)
	if speed == 0 {
		return cur
	}
	return r3.Add(cur, r3.Scale(e.params.lookahead(speed)/speed, velocity))
}

// evaluate requires e.mu.
func (e *Evaluator) evaluate(dest, cur r3.Vec, orientation r3.Rotation) EvalResult {
	r := newResult(cur, dest)
	if e.cfg.enabled.Contains(GeoFence) {
		e.checkFence(&r)
	}
	if e.cfg.enabled.Contains(Obstacle) {
		e.checkObstacles(&r, orientation)
	}
	return r
}

func (e *Evaluator) checkFence(r *EvalResult) {
	r.CurFence = e.fence.Classify(r.CurPos)
	r.DestFence = e.fence.Classify(r.DestPos)
	switch {
	case r.DestFence.Inside():
	case !r.CurFence.Inside() && r.DestFence.Distance < r.CurFence.Distance:
		r.note("outside geofence, returning toward it")
	default:
		r.fail(GeoFence, "destination is %.2fm outside geofence", r.DestFence.Distance)
	}
}

func (e *Evaluator) checkObstacles(r *EvalResult, orientation r3.Rotation) {
	r.CurDestBody = geo.ToBodyFrame(r3.Sub(r.DestPos, r.CurPos), orientation)
	r.CurObs = e.obs.ClosestObstacle()
	r.CurRiskDist = e.clearanceFor(r.CurObs) - r.CurObs.Distance

	travel := geo.HorizontalNorm(r.CurDestBody)
	if travel < e.params.DistanceAccuracy {
		// hovering: only the current position matters
		if r.CurRiskDist <= 0 {
			return
		}
		r.fail(Obstacle, "obstacle %.2fm away is inside %.2fm clearance", r.CurObs.Distance, e.cfg.clearance)
		e.suggest(r, orientation, r.CurObs.Tick+e.obs.Ticks()/2, e.params.MinLookahead)
		return
	}

	tick := e.obs.AngleToTick(geo.BodyAngle(r.CurDestBody))
	r.DestObs = e.cone(tick)
	r.DestRiskDist = travel + e.clearanceFor(r.DestObs) - r.DestObs.Distance
	if r.DestRiskDist <= 0 {
		return
	}
	if riskLess(r.DestRiskDist, r.CurRiskDist) {
		r.note("moving away from obstacle inside clearance")
		return
	}

	r.fail(Obstacle, "obstacle %.2fm away toward destination, risk %.2fm", r.DestObs.Distance, r.DestRiskDist)
	start := tick
	if e.cfg.strategy == OppositeMove {
		start += e.obs.Ticks() / 2
	}
	e.suggest(r, orientation, start, travel)
}

// suggest searches outward from start, alternating clockwise and
// counter-clockwise, for the nearest tick whose cone clears the margin after
// travelling the given distance. The first clear tick is proposed only if it
// is safer than staying put.
func (e *Evaluator) suggest(r *EvalResult, orientation r3.Rotation, start int, travel float64) {
	if e.cfg.strategy == RaiseException {
		return
	}
	ticks := e.obs.Ticks()
	for i := 0; i < ticks; i++ {
		t := start + searchOffset(i)
		obs := e.cone(t)
		risk := travel + e.clearanceFor(obs) - obs.Distance
		if risk > 0 {
			continue
		}
		if !riskLess(risk, r.CurRiskDist) {
			r.note("no direction safer than current position")
			return
		}
		angle := e.obs.TickToAngleMid(t)
		r.SuggestedVec = geo.ToWorldFrame(r3.Vec{X: math.Cos(angle), Y: math.Sin(angle)}, orientation)
		r.SuggestedObs = obs
		return
	}
	r.note("no clear direction")
}

// searchOffset yields 0, +1, -1, +2, -2, ...
func searchOffset(i int) int {
	if i%2 == 1 {
		return (i + 1) / 2
	}
	return -i / 2
}

// cone returns the closest obstacle within ObsWindow ticks of t.
func (e *Evaluator) cone(t int) obstacle.Info {
	w := e.params.ObsWindow
	return e.obs.HasObstacle(t-w, t+w+1)
}

func (e *Evaluator) clearanceFor(o obstacle.Info) float64 {
	return e.cfg.clearance + e.params.UncertaintyClearance*(1-o.Confidence)
}

func (e *Evaluator) checkSpeed(r *EvalResult, speed float64) {
	if !e.cfg.enabled.Contains(VelocityLimit) || e.params.MaxSpeed <= 0 {
		return
	}
	if speed > e.params.MaxSpeed {
		r.fail(VelocityLimit, "speed %.2fm/s exceeds limit %.2fm/s", speed, e.params.MaxSpeed)
	}
}

func (e *Evaluator) finish(r *EvalResult) {
	if e.debug && !r.IsSafe {
		logf("%v", r)
	}
}

// riskLess reports whether a is strictly safer than b. An unevaluated (NaN)
// distance is never safer than an evaluated one.
func riskLess(a, b float64) bool {
	switch {
	case math.IsNaN(a):
		return false
	case math.IsNaN(b):
		return true
	}
	return a < b
}
