package units

import (
	"errors"
	"math"
	"testing"
)

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		name     string
		speedMPS float64
		units    string
		expected float64
	}{
		{"hover", 0, MPH, 0},
		{"mps unchanged", 5, MPS, 5},
		{"max speed in kmph", 10, KMPH, 36},
		{"max speed in kph", 10, KPH, 36},
		{"max speed in mph", 10, MPH, 22.369362920544},
		{"max speed in knots", 10, Knots, 19.438444924406},
		{"unknown stays in mps", 10, "furlongs", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConvertSpeed(tt.speedMPS, tt.units); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("ConvertSpeed(%g, %s) = %g, want %g", tt.speedMPS, tt.units, got, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	for _, u := range ValidUnits {
		if !IsValid(u) {
			t.Errorf("IsValid(%q) = false", u)
		}
	}
	for _, u := range []string{"", "MPH", "Knots", "m/s"} {
		if IsValid(u) {
			t.Errorf("IsValid(%q) = true", u)
		}
	}
}

func TestGetValidUnitsString(t *testing.T) {
	if got, want := GetValidUnitsString(), "mps, mph, kmph, kph, knots"; got != want {
		t.Errorf("GetValidUnitsString() = %q, want %q", got, want)
	}
}

func TestToMPS(t *testing.T) {
	tests := []struct {
		name  string
		speed float64
		unit  string
		want  float64
	}{
		{"mps", 7, MPS, 7},
		{"kmph", 36, KMPH, 10},
		{"kph", 18, KPH, 5},
		{"mph", 2.2369362920544, MPH, 1},
		{"knots", 1.9438444924406 * 4, Knots, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToMPS(tt.speed, tt.unit)
			if err != nil {
				t.Fatalf("ToMPS(%g, %s) error: %v", tt.speed, tt.unit, err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ToMPS(%g, %s) = %g, want %g", tt.speed, tt.unit, got, tt.want)
			}
			if back := ConvertSpeed(got, tt.unit); math.Abs(back-tt.speed) > 1e-9 {
				t.Errorf("ConvertSpeed(ToMPS(%g)) = %g", tt.speed, back)
			}
		})
	}

	if _, err := ToMPS(1, "furlongs"); !errors.Is(err, ErrUnknownUnit) {
		t.Errorf("ToMPS(furlongs) error = %v, want ErrUnknownUnit", err)
	}
}
