package dynamo

import "github.com/pkg/errors"

// Domain errors for simulation runs.
var (
	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrInvalidConfig indicates a non-positive step, duration or tolerance.
	ErrInvalidConfig = errors.New("dynamo: invalid simulation config")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrStepRejected is returned by an adaptive integrator whose error
	// estimate exceeded the tolerance. The suggested step is still returned.
	ErrStepRejected = errors.New("dynamo: adaptive step rejected")

	// ErrDimensionMismatch indicates an initial state or command of the wrong size.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrControl indicates a tick where the controller fell back to a zero command.
	ErrControl = errors.New("dynamo: controller fell back to zero command")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return errors.Wrapf(e.Wrapped, "step %d (t=%.4f)", e.Step, e.Time).Error()
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
