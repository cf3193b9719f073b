package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for propagation.
var (
	// ErrStepTooSmall indicates the step size collapsed below the configured
	// minimum without satisfying the error criterion (numerical stiffness).
	ErrStepTooSmall = errors.New("dynamo: step size below minimum (stiffness)")

	// ErrMaxEvaluations indicates the derivative-evaluation budget ran out.
	ErrMaxEvaluations = errors.New("dynamo: derivative evaluation budget exceeded")

	// ErrDimensionMismatch indicates disagreeing state vector lengths.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")

	// ErrRootConvergence indicates event localization failed to shrink the
	// bracket below the detector's time tolerance within the iteration bound.
	ErrRootConvergence = errors.New("dynamo: event root localization did not converge")

	// ErrOutsideStep indicates a dense-output query beyond the step's valid
	// (possibly event-truncated) domain.
	ErrOutsideStep = errors.New("dynamo: query outside step domain")

	// ErrConfigBounds indicates an inconsistent tolerance or step bound.
	ErrConfigBounds = errors.New("dynamo: invalid propagation config")

	// ErrInvalidState indicates a NaN or Inf state component.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")
)

// PropagationError carries the last valid time and state, and the offending
// detector when one is involved, so a caller can diagnose a fatal abort
// without re-running.
type PropagationError struct {
	Time     float64
	State    State
	Detector int // registration index of the offending detector, -1 if none
	Wrapped  error
}

func (e *PropagationError) Error() string {
	if e.Detector >= 0 {
		return fmt.Sprintf("%v (t=%.6g, detector %d)", e.Wrapped, e.Time, e.Detector)
	}
	return fmt.Sprintf("%v (t=%.6g)", e.Wrapped, e.Time)
}

func (e *PropagationError) Unwrap() error {
	return e.Wrapped
}
