// Package units provides shared constants and conversion for speed units
package units

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownUnit is returned by ToMPS for a unit not in ValidUnits.
var ErrUnknownUnit = errors.New("unknown speed unit")

// Unit constants
const (
	MPS   = "mps"
	MPH   = "mph"
	KMPH  = "kmph"
	KPH   = "kph"
	Knots = "knots"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH, Knots}

// factors from m/s
var perMPS = map[string]float64{
	MPS:   1,
	MPH:   2.2369362920544,
	KMPH:  3.6,
	KPH:   3.6,
	Knots: 1.9438444924406,
}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	_, ok := perMPS[unit]
	return ok
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertSpeed converts a speed from meters per second to the target units.
// Unknown units leave the value in m/s.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	if f, ok := perMPS[targetUnits]; ok {
		return speedMPS * f
	}
	return speedMPS
}

// ToMPS converts a speed given in units to meters per second.
func ToMPS(speed float64, units string) (float64, error) {
	f, ok := perMPS[units]
	if !ok {
		return 0, fmt.Errorf("%w %q (valid: %s)", ErrUnknownUnit, units, GetValidUnitsString())
	}
	return speed / f, nil
}
