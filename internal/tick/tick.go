// Package tick defines the lifecycle contract shared by every stateful
// simulated object.
//
// An object is constructed and initialized, then Reset must be called before
// the first Update. Reset rolls the object back to the state it was
// initialized with, which lets a whole simulation be replayed from the same
// starting point. Calling Update before any Reset, or calling Reset twice
// without an Update in between, indicates a bug in the driver and is reported
// immediately rather than producing silently wrong physics.
//
// Implementations are not safe for concurrent use. One goroutine drives
// Reset and Update for a given object.
package tick

import (
	"errors"

	"github.com/jeyong/simsafety/internal/timeutil"
)

var (
	// ErrDoubleReset is returned when Reset is called twice with no Update in between.
	ErrDoubleReset = errors.New("reset called again without an intervening update")

	// ErrUpdateBeforeReset is returned when Update is called before the first Reset.
	ErrUpdateBeforeReset = errors.New("update called before reset")

	// ErrClockSwap is returned when the clock is replaced after the first Reset.
	ErrClockSwap = errors.New("clock can only be replaced before the first reset")
)

// Tickable is implemented by every object advanced once per simulation tick.
type Tickable interface {
	// Reset returns the object to its initial state.
	Reset() error

	// Update advances the object by the time elapsed since the previous tick.
	Update() error

	// ReportState writes a diagnostic dump of the object's state.
	ReportState(r Reporter)

	// Clock returns the time source the object measures elapsed time with.
	Clock() timeutil.Clock
}

// Lifecycle enforces the reset-before-update ordering. Concrete types embed
// it and call its Reset and Update first from their own implementations.
// The zero value is ready to use and measures time with timeutil.RealClock.
type Lifecycle struct {
	resetDone            bool
	updateDoneSinceReset bool
	clock                timeutil.Clock
}

// Reset records that a reset happened.
func (l *Lifecycle) Reset() error {
	if l.resetDone && !l.updateDoneSinceReset {
		return ErrDoubleReset
	}
	l.resetDone = true
	l.updateDoneSinceReset = false
	return nil
}

// Update records that an update happened.
func (l *Lifecycle) Update() error {
	if !l.resetDone {
		return ErrUpdateBeforeReset
	}
	l.updateDoneSinceReset = true
	return nil
}

// ReportState is a no-op default.
func (l *Lifecycle) ReportState(Reporter) {}

// Clock returns the configured clock, or RealClock when none was set.
func (l *Lifecycle) Clock() timeutil.Clock {
	if l.clock == nil {
		return timeutil.RealClock{}
	}
	return l.clock
}

// SetClock replaces the time source. Mixing two timelines within one object
// would corrupt its elapsed-time arithmetic, so the clock can only change
// before the first Reset.
func (l *Lifecycle) SetClock(c timeutil.Clock) error {
	if l.resetDone {
		return ErrClockSwap
	}
	l.clock = c
	return nil
}

// IsReset reports whether Reset has been called at least once.
func (l *Lifecycle) IsReset() bool { return l.resetDone }

// ClearLifecycle forgets all reset and update history, as if the object had
// just been constructed. Used when an object is re-initialized.
func (l *Lifecycle) ClearLifecycle() {
	l.resetDone = false
	l.updateDoneSinceReset = false
}
