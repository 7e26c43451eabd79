package safety

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jeyong/simsafety/internal/geofence"
	"github.com/jeyong/simsafety/internal/obstacle"
)

// ErrUnsafe matches every *UnsafeError with errors.Is.
var ErrUnsafe = errors.New("unsafe command")

// EvalResult is the verdict of one evaluation. Fields belonging to a check
// that was not enabled keep their zero or sentinel values.
type EvalResult struct {
	IsSafe bool
	Reason ViolationSet

	// Obstacles around the current position, toward the destination and
	// toward the suggested direction.
	CurObs, DestObs, SuggestedObs obstacle.Info

	CurPos, DestPos r3.Vec
	// CurDestBody is the current to destination vector in the body frame.
	CurDestBody r3.Vec

	// Risk distances say how far into the clearance margin a position is.
	// Zero or less is clear and the smaller value is always safer. NaN means
	// the distance was not evaluated.
	CurRiskDist, DestRiskDist float64

	// SuggestedVec is a world-frame unit vector toward a clear direction, or
	// zero when there is no suggestion.
	SuggestedVec r3.Vec

	CurFence, DestFence geofence.Classification

	Message string
}

func newResult(cur, dest r3.Vec) EvalResult {
	return EvalResult{
		IsSafe:       true,
		CurObs:       obstacle.NoObstacle(),
		DestObs:      obstacle.NoObstacle(),
		SuggestedObs: obstacle.NoObstacle(),
		CurPos:       cur,
		DestPos:      dest,
		CurRiskDist:  math.NaN(),
		DestRiskDist: math.NaN(),
	}
}

func (r *EvalResult) fail(v Violation, format string, args ...interface{}) {
	r.IsSafe = false
	r.Reason = r.Reason.Add(v)
	r.note(format, args...)
}

func (r *EvalResult) note(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if r.Message == "" {
		r.Message = msg
		return
	}
	r.Message += "; " + msg
}

// HasSuggestion reports whether a corrective direction was proposed.
func (r EvalResult) HasSuggestion() bool {
	return r.SuggestedVec != (r3.Vec{})
}

func (r EvalResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "SafetyEval: is_safe=%t, reason=%v, cur_risk_dist=%g, dest_risk_dist=%g, suggested_vec=%v",
		r.IsSafe, r.Reason, r.CurRiskDist, r.DestRiskDist, r.SuggestedVec)
	fmt.Fprintf(&b, ", cur=%v, dest=%v, cur_dest_body=%v", r.CurPos, r.DestPos, r.CurDestBody)
	fmt.Fprintf(&b, ", cur_obs=[%v], dest_obs=[%v], suggested_obs=[%v], message=%s",
		r.CurObs, r.DestObs, r.SuggestedObs, r.Message)
	return b.String()
}

// Err returns nil for a safe verdict and an *UnsafeError otherwise, for
// callers that escalate unsafe commands into a hard stop.
func (r EvalResult) Err() error {
	if r.IsSafe {
		return nil
	}
	return &UnsafeError{Reason: r.Reason, Message: r.Message}
}

// UnsafeError carries an unsafe verdict as an error.
type UnsafeError struct {
	Reason  ViolationSet
	Message string
}

func (e *UnsafeError) Error() string {
	return fmt.Sprintf("unsafe command (%v): %s", e.Reason, e.Message)
}

func (e *UnsafeError) Is(target error) bool { return target == ErrUnsafe }
