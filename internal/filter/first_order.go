// Package filter implements discrete first-order low-pass filters.
//
// The continuous system X(s)/U(s) = 1/(tau*s + 1) is discretized with a
// zero-order hold over the real elapsed time between ticks:
//
//	x(k+1) = exp(-dt/tau)*x(k) + (1 - exp(-dt/tau))*u(k)
//
// so the response stays correct when the tick rate varies.
package filter

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jeyong/simsafety/internal/tick"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidTimeConstant is returned for a non-positive time constant.
var ErrInvalidTimeConstant = errors.New("filter time constant must be positive")

// Mixer blends the previous output with the input: output*alpha + input*(1-alpha).
type Mixer[T any] func(output, input T, alpha float64) T

// ScalarMixer returns the Mixer for any floating point type.
func ScalarMixer[F constraints.Float]() Mixer[F] {
	return func(output, input F, alpha float64) F {
		return F(float64(output)*alpha + float64(input)*(1-alpha))
	}
}

// VecMixer blends three-dimensional vectors component-wise.
func VecMixer(output, input r3.Vec, alpha float64) r3.Vec {
	return r3.Add(r3.Scale(alpha, output), r3.Scale(1-alpha, input))
}

// FirstOrder smooths a signal of type T. It implements tick.Tickable.
type FirstOrder[T any] struct {
	tick.Lifecycle

	timeConstant  float64 // seconds
	initialInput  T
	initialOutput T
	input         T
	output        T
	lastTick      time.Time
	mix           Mixer[T]
}

// New creates a filter that is ready for Reset.
func New[T any](timeConstant float64, initialInput, initialOutput T, mix Mixer[T]) (*FirstOrder[T], error) {
	f := &FirstOrder[T]{mix: mix}
	if err := f.Initialize(timeConstant, initialInput, initialOutput); err != nil {
		return nil, err
	}
	return f, nil
}

// NewScalar creates a float64 filter.
func NewScalar(timeConstant, initialInput, initialOutput float64) (*FirstOrder[float64], error) {
	return New(timeConstant, initialInput, initialOutput, ScalarMixer[float64]())
}

// NewVec creates a vector filter.
func NewVec(timeConstant float64, initialInput, initialOutput r3.Vec) (*FirstOrder[r3.Vec], error) {
	return New(timeConstant, initialInput, initialOutput, VecMixer)
}

// Initialize sets the filter constants. It has no other side effects; the
// current input and output only change on the next Reset.
func (f *FirstOrder[T]) Initialize(timeConstant float64, initialInput, initialOutput T) error {
	if !(timeConstant > 0) || math.IsInf(timeConstant, 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidTimeConstant, timeConstant)
	}
	f.timeConstant = timeConstant
	f.initialInput = initialInput
	f.initialOutput = initialOutput
	return nil
}

// Reset restores the initial input and output and restarts the tick timer.
func (f *FirstOrder[T]) Reset() error {
	if err := f.Lifecycle.Reset(); err != nil {
		return err
	}
	f.lastTick = f.Clock().Now()
	f.input = f.initialInput
	f.output = f.initialOutput
	return nil
}

// Update moves the output toward the input by the time elapsed since the
// previous Reset or Update.
func (f *FirstOrder[T]) Update() error {
	if err := f.Lifecycle.Update(); err != nil {
		return err
	}
	now := f.Clock().Now()
	dt := now.Sub(f.lastTick).Seconds()
	f.lastTick = now

	alpha := math.Exp(-dt / f.timeConstant)
	f.output = f.mix(f.output, f.input, alpha)
	return nil
}

// ReportState implements tick.Tickable.
func (f *FirstOrder[T]) ReportState(r tick.Reporter) {
	r.Value("time_constant", f.timeConstant)
	r.Value("input", f.input)
	r.Value("output", f.output)
}

// SetInput sets the value the output converges to. The output is unchanged
// until the next Update.
func (f *FirstOrder[T]) SetInput(input T) { f.input = input }

// Input returns the current input.
func (f *FirstOrder[T]) Input() T { return f.input }

// Output returns the filtered value.
func (f *FirstOrder[T]) Output() T { return f.output }

// TimeConstant returns tau in seconds.
func (f *FirstOrder[T]) TimeConstant() float64 { return f.timeConstant }
