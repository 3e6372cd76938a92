package pert

import (
	"errors"
	"fmt"
)

// Configuration errors. A system that returned one of these is not
// usable until a later rebuild succeeds.
var (
	// ErrUnknownPlaceholder indicates a dependency code outside the placeholder set.
	ErrUnknownPlaceholder = errors.New("pert: unknown placeholder code")

	// ErrDepthExceeded indicates placeholder expansion did not reach a fixed point.
	ErrDepthExceeded = errors.New("pert: placeholder expansion too deep")

	// ErrIndexOutOfRange indicates a resolved dependency outside the variable table.
	ErrIndexOutOfRange = errors.New("pert: dependency index out of range")

	ErrDuplicateComponent = errors.New("pert: component id already registered")
	ErrInvalidRole        = errors.New("pert: gravity must be set with SetGravity")
	ErrInvalidComponentID = errors.New("pert: component id must be non-negative")
	ErrInvalidGauge       = errors.New("pert: invalid gauge")

	ErrUnsupportedBackend = errors.New("pert: unsupported integrator backend")
	ErrNoGravity          = errors.New("pert: no gravity provider set")
	ErrNotAssembled       = errors.New("pert: system not assembled")
)

// ErrStepFailure is the recoverable numerical failure a sector reports
// when it cannot evaluate its terms at the requested point.
var ErrStepFailure = errors.New("pert: step evaluation failed")

// StepError carries the time and owner of a failed RHS evaluation.
type StepError struct {
	Time    float64
	Owner   int
	Wrapped error
}

func (e *StepError) Error() string {
	if e.Owner == GravityOwner {
		return fmt.Sprintf("rhs at t=%g (gravity): %v", e.Time, e.Wrapped)
	}
	return fmt.Sprintf("rhs at t=%g (component %d): %v", e.Time, e.Owner, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
