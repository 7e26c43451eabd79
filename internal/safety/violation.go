package safety

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownViolation is returned when parsing an unrecognised violation name.
var ErrUnknownViolation = errors.New("unknown safety violation")

// Violation is one kind of safety check.
type Violation uint8

const (
	GeoFence Violation = iota
	Obstacle
	VelocityLimit

	violationCount
)

var violationNames = [violationCount]string{"GeoFence", "Obstacle", "VelocityLimit"}

func (v Violation) String() string {
	if v < violationCount {
		return violationNames[v]
	}
	return fmt.Sprintf("Violation(%d)", uint8(v))
}

// ParseViolation accepts names such as "GeoFence", "geo_fence" or
// "velocity-limit".
func ParseViolation(name string) (Violation, error) {
	key := normalizeName(name)
	for v := Violation(0); v < violationCount; v++ {
		if normalizeName(violationNames[v]) == key {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownViolation, name)
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

// ViolationSet is a set of violation kinds. The zero value is empty and
// means no violation.
type ViolationSet struct {
	bits uint8
}

// NewViolationSet returns a set holding vs. Values outside the known kinds
// are ignored.
func NewViolationSet(vs ...Violation) ViolationSet {
	var s ViolationSet
	for _, v := range vs {
		s = s.Add(v)
	}
	return s
}

// AllViolations returns the set of every known kind.
func AllViolations() ViolationSet {
	return ViolationSet{bits: 1<<violationCount - 1}
}

func (s ViolationSet) Add(v Violation) ViolationSet {
	if v >= violationCount {
		return s
	}
	return ViolationSet{bits: s.bits | 1<<v}
}

func (s ViolationSet) Contains(v Violation) bool {
	return v < violationCount && s.bits&(1<<v) != 0
}

func (s ViolationSet) Union(o ViolationSet) ViolationSet {
	return ViolationSet{bits: s.bits | o.bits}
}

func (s ViolationSet) Intersect(o ViolationSet) ViolationSet {
	return ViolationSet{bits: s.bits & o.bits}
}

func (s ViolationSet) Empty() bool { return s.bits == 0 }

// Violations lists the members in declaration order.
func (s ViolationSet) Violations() []Violation {
	var out []Violation
	for v := Violation(0); v < violationCount; v++ {
		if s.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

func (s ViolationSet) String() string {
	if s.Empty() {
		return "None"
	}
	vs := s.Violations()
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = v.String()
	}
	return strings.Join(names, "|")
}

// ParseViolationSet builds a set from names. "all" selects every kind and
// "none" contributes nothing.
func ParseViolationSet(names []string) (ViolationSet, error) {
	var s ViolationSet
	for _, name := range names {
		switch normalizeName(name) {
		case "all":
			s = s.Union(AllViolations())
			continue
		case "none", "":
			continue
		}
		v, err := ParseViolation(name)
		if err != nil {
			return ViolationSet{}, err
		}
		s = s.Add(v)
	}
	return s, nil
}
