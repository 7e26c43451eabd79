package tick

import (
	"fmt"

	"github.com/jeyong/simsafety/internal/timeutil"
)

// Group resets and updates a fixed set of tickables in insertion order.
// It is itself a Tickable, so groups can be nested.
type Group struct {
	Lifecycle
	members []Tickable
	names   []string
}

// NewGroup creates an empty group.
func NewGroup() *Group {
	return &Group{}
}

// Add appends a member. Members must be added before the first Reset.
func (g *Group) Add(name string, t Tickable) {
	g.members = append(g.members, t)
	g.names = append(g.names, name)
}

// Len returns the number of members.
func (g *Group) Len() int { return len(g.members) }

// Reset resets every member, stopping at the first failure.
func (g *Group) Reset() error {
	if err := g.Lifecycle.Reset(); err != nil {
		return err
	}
	for i, m := range g.members {
		if err := m.Reset(); err != nil {
			return fmt.Errorf("reset %s: %w", g.names[i], err)
		}
	}
	return nil
}

// Update updates every member, stopping at the first failure.
func (g *Group) Update() error {
	if err := g.Lifecycle.Update(); err != nil {
		return err
	}
	for i, m := range g.members {
		if err := m.Update(); err != nil {
			return fmt.Errorf("update %s: %w", g.names[i], err)
		}
	}
	return nil
}

// ReportState reports each member under its own heading.
func (g *Group) ReportState(r Reporter) {
	for i, m := range g.members {
		r.Heading(g.names[i])
		m.ReportState(r)
	}
}

// SetClock propagates the clock to members that accept one.
func (g *Group) SetClock(c timeutil.Clock) error {
	if err := g.Lifecycle.SetClock(c); err != nil {
		return err
	}
	for i, m := range g.members {
		if s, ok := m.(interface{ SetClock(timeutil.Clock) error }); ok {
			if err := s.SetClock(c); err != nil {
				return fmt.Errorf("set clock on %s: %w", g.names[i], err)
			}
		}
	}
	return nil
}
