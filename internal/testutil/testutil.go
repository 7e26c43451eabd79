// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// TB is the subset of testing.TB the helpers need.
type TB interface {
	Helper()
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
}

// AssertVecInDelta checks each component of got against want.
func AssertVecInDelta(t TB, want, got r3.Vec, delta float64) {
	t.Helper()
	if !VecInDelta(want, got, delta) {
		t.Errorf("vector = %+v, want %+v (delta %g)", got, want, delta)
	}
}

// VecInDelta reports whether every component of a and b differs by at most delta.
func VecInDelta(a, b r3.Vec, delta float64) bool {
	return math.Abs(a.X-b.X) <= delta &&
		math.Abs(a.Y-b.Y) <= delta &&
		math.Abs(a.Z-b.Z) <= delta
}
