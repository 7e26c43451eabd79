// Package obstacle implements a 2D map of obstacles in a disk around the
// vehicle, built for constant-time inserts and queries under continuous
// sensor updates.
//
// The circle is divided into Ticks equal segments. Segment 0 is the forward
// cone: it is centred on the body's x axis, so with Ticks=4 segment 1 holds
// obstacles on the right, 2 behind and 3 on the left.
//
//	 0XXX1
//	XX   XX
//	XX   XX
//	 3XXX2
//
// One goroutine typically writes sensor readings while others query. A single
// mutex serializes every operation so each call sees a consistent map.
package obstacle

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/jeyong/simsafety/internal/monitoring"
)

var (
	// ErrInvalidTickCount is returned when a map is created with fewer than one tick.
	ErrInvalidTickCount = errors.New("tick count must be positive")

	// ErrLengthMismatch is returned by UpdateAll when slice lengths differ from the tick count.
	ErrLengthMismatch = errors.New("length does not match tick count")

	// ErrNegativeWindow is returned for a negative update window.
	ErrNegativeWindow = errors.New("window must not be negative")
)

// NoTick marks an Info that does not refer to any segment.
const NoTick = -1

var logf = monitoring.Component("ObstacleMap")

// Info is the result of a query.
type Info struct {
	Tick       int     // segment the obstacle was found in
	Distance   float64 // meters, +Inf when nothing was seen
	Confidence float64
}

// NoObstacle is the sentinel returned when a query finds no reading.
func NoObstacle() Info {
	return Info{Tick: NoTick, Distance: math.Inf(1), Confidence: 0}
}

// Found reports whether the query saw an obstacle at a finite distance.
func (o Info) Found() bool { return !math.IsInf(o.Distance, 1) }

func (o Info) String() string {
	return fmt.Sprintf("Obs: tick=%d, distance=%g, confidence=%g", o.Tick, o.Distance, o.Confidence)
}

// closer reports whether o ranks before b: smaller distance, then higher
// confidence, then lower tick.
func (o Info) closer(b Info) bool {
	if o.Distance != b.Distance {
		return o.Distance < b.Distance
	}
	if o.Confidence != b.Confidence {
		return o.Confidence > b.Confidence
	}
	return o.Tick < b.Tick
}

// Map is safe for concurrent use.
type Map struct {
	mu          sync.Mutex
	ticks       int
	distances   []float64
	confidences []float64
	blindspots  []bool
}

// New creates a map with every segment empty. When oddBlindspots is set every
// odd tick is a blind spot, matching sensor rigs that only cover even
// segments.
func New(ticks int, oddBlindspots bool) (*Map, error) {
	if ticks <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTickCount, ticks)
	}
	m := &Map{
		ticks:       ticks,
		distances:   make([]float64, ticks),
		confidences: make([]float64, ticks),
		blindspots:  make([]bool, ticks),
	}
	for i := range m.distances {
		m.distances[i] = math.Inf(1)
	}
	if oddBlindspots {
		for i := 1; i < ticks; i += 2 {
			m.blindspots[i] = true
		}
	}
	return m, nil
}

// Ticks returns the resolution the map was created with.
func (m *Map) Ticks() int { return m.ticks }

// wrap maps any integer onto [0, ticks).
func (m *Map) wrap(tick int) int {
	t := tick % m.ticks
	if t < 0 {
		t += m.ticks
	}
	return t
}

// Update records an obstacle at distance for every tick in
// [tick-window, tick+window], wrapping around the ring. A segment is only
// overwritten when the new reading is closer, or equally close with higher
// confidence. Blind spots are never written.
func (m *Map) Update(distance float64, tick, window int, confidence float64) error {
	if window < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeWindow, window)
	}
	if math.IsNaN(distance) {
		return fmt.Errorf("distance is NaN at tick %d", tick)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// a window covering the ring would otherwise visit segments twice;
	// window >= ticks is checked first so 2*window+1 cannot overflow
	if window >= m.ticks || 2*window+1 >= m.ticks {
		for t := 0; t < m.ticks; t++ {
			m.write(t, distance, confidence)
		}
		return nil
	}
	for i := tick - window; i <= tick+window; i++ {
		m.write(m.wrap(i), distance, confidence)
	}
	return nil
}

func (m *Map) write(t int, distance, confidence float64) {
	if m.blindspots[t] {
		return
	}
	cur := m.distances[t]
	if distance < cur || (distance == cur && confidence > m.confidences[t]) {
		m.distances[t] = distance
		m.confidences[t] = confidence
	}
}

// UpdateAll replaces the whole map. Both slices must have exactly Ticks
// entries. Values stored for blind spots are kept but never read.
func (m *Map) UpdateAll(distances, confidences []float64) error {
	if len(distances) != m.ticks || len(confidences) != m.ticks {
		return fmt.Errorf("%w: distances=%d confidences=%d ticks=%d",
			ErrLengthMismatch, len(distances), len(confidences), m.ticks)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.distances, distances)
	copy(m.confidences, confidences)
	return nil
}

// UpdateAngle records a reading from a range sensor pointing at bearing
// angleRad (body frame) whose beam spans halfWidthRad to either side.
func (m *Map) UpdateAngle(angleRad, halfWidthRad, distance, confidence float64) error {
	if !(halfWidthRad >= 0) {
		return fmt.Errorf("%w: half width %g", ErrNegativeWindow, halfWidthRad)
	}
	window := m.ticks
	if halfWidthRad < math.Pi {
		window = int(math.Round(halfWidthRad / m.tickWidth()))
	}
	return m.Update(distance, m.AngleToTick(angleRad), window, confidence)
}

// Clear forgets every reading. Blind spot flags are kept.
func (m *Map) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.distances {
		m.distances[i] = math.Inf(1)
		m.confidences[i] = 0
	}
}

// SetBlindspot marks or unmarks a tick as a blind spot.
func (m *Map) SetBlindspot(tick int, blindspot bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.wrap(tick)
	if m.blindspots[t] != blindspot {
		logf("tick %d blind spot=%v", t, blindspot)
	}
	m.blindspots[t] = blindspot
}

// IsBlindspot reports whether tick is a blind spot.
func (m *Map) IsBlindspot(tick int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blindspots[m.wrap(tick)]
}

// HasObstacle returns the closest obstacle in the ticks [fromTick, toTick),
// walking forward around the ring from fromTick. A span of Ticks or more
// covers the whole ring; an empty span returns NoObstacle.
func (m *Map) HasObstacle(fromTick, toTick int) Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasObstacle(fromTick, toTick)
}

// hasObstacle requires m.mu.
func (m *Map) hasObstacle(fromTick, toTick int) Info {
	n := toTick - fromTick
	if n >= m.ticks {
		n = m.ticks
	} else {
		n = m.wrap(n)
	}

	best := NoObstacle()
	for i := 0; i < n; i++ {
		t := m.wrap(fromTick + i)
		d, c, ok := m.reading(t)
		if !ok || math.IsInf(d, 1) {
			continue
		}
		cand := Info{Tick: t, Distance: d, Confidence: c}
		if !best.Found() || cand.closer(best) {
			best = cand
		}
	}
	return best
}

// reading returns the effective value of tick t. A blind spot inherits from
// the nearest non-blind tick, looking at the lower neighbour first. ok is
// false when every tick is blind.
func (m *Map) reading(t int) (distance, confidence float64, ok bool) {
	if !m.blindspots[t] {
		return m.distances[t], m.confidences[t], true
	}
	for d := 1; d <= m.ticks/2; d++ {
		if lo := m.wrap(t - d); !m.blindspots[lo] {
			return m.distances[lo], m.confidences[lo], true
		}
		if hi := m.wrap(t + d); !m.blindspots[hi] {
			return m.distances[hi], m.confidences[hi], true
		}
	}
	return math.Inf(1), 0, false
}

// ClosestObstacle searches the entire ring.
func (m *Map) ClosestObstacle() Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasObstacle(0, m.ticks)
}

// Snapshot returns the effective distance and confidence of every tick, with
// blind spots resolved, under a single lock acquisition.
func (m *Map) Snapshot() (distances, confidences []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	distances = make([]float64, m.ticks)
	confidences = make([]float64, m.ticks)
	for t := 0; t < m.ticks; t++ {
		distances[t], confidences[t], _ = m.reading(t)
	}
	return distances, confidences
}
