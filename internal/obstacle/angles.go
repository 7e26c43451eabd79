package obstacle

import "math"

func (m *Map) tickWidth() float64 {
	return 2 * math.Pi / float64(m.ticks)
}

// AngleToTick converts a body-frame bearing in radians (clockwise from
// forward) to the segment containing it.
func (m *Map) AngleToTick(angleRad float64) int {
	w := m.tickWidth()
	return m.wrap(int(math.Floor((angleRad + w/2) / w)))
}

// TickToAngleStart returns the bearing where segment tick begins. Segment 0
// starts half a segment to the left of forward, so its value is negative.
func (m *Map) TickToAngleStart(tick int) float64 {
	w := m.tickWidth()
	return float64(m.wrap(tick))*w - w/2
}

// TickToAngleEnd returns the bearing where segment tick ends.
func (m *Map) TickToAngleEnd(tick int) float64 {
	w := m.tickWidth()
	return float64(m.wrap(tick))*w + w/2
}

// TickToAngleMid returns the bearing of the segment's centre line.
func (m *Map) TickToAngleMid(tick int) float64 {
	return float64(m.wrap(tick)) * m.tickWidth()
}
