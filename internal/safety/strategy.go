package safety

import (
	"errors"
	"fmt"
)

// ErrUnknownStrategy is returned for an out-of-range or unrecognised strategy.
var ErrUnknownStrategy = errors.New("unknown avoidance strategy")

// Strategy selects how a corrective direction is proposed when the obstacle
// check fails.
type Strategy int

const (
	// RaiseException proposes nothing; the caller treats the verdict as a hard stop.
	RaiseException Strategy = iota
	// ClosestMove searches outward from the desired direction.
	ClosestMove
	// OppositeMove searches outward from the direction opposite the desired one.
	OppositeMove
)

var strategyNames = map[Strategy]string{
	RaiseException: "RaiseException",
	ClosestMove:    "ClosestMove",
	OppositeMove:   "OppositeMove",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

func (s Strategy) valid() bool {
	_, ok := strategyNames[s]
	return ok
}

// ParseStrategy accepts names such as "ClosestMove" or "closest_move".
func ParseStrategy(name string) (Strategy, error) {
	key := normalizeName(name)
	for s, n := range strategyNames {
		if normalizeName(n) == key {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}
