package planner

import (
	"github.com/pkg/errors"

	"github.com/san-kum/fabrics/internal/symbolic"
)

var (
	// ErrNotReady indicates ComputeAction before Concretize.
	ErrNotReady = errors.New("planner: not concretized")

	// ErrInvalidTransition indicates a setup call out of order or repeated.
	ErrInvalidTransition = errors.New("planner: invalid state transition")

	// ErrUnknownLink indicates a link the forward kinematics does not know.
	ErrUnknownLink = errors.New("planner: unknown link")

	// ErrInvalidLimits indicates joint limits of the wrong size or with lower >= upper.
	ErrInvalidLimits = errors.New("planner: invalid joint limits")

	// ErrInvalidGoal indicates a sub-goal that cannot be turned into a leaf.
	ErrInvalidGoal = errors.New("planner: invalid goal")

	// ErrNoCollisionLinks indicates obstacles without any link to avoid them with.
	ErrNoCollisionLinks = errors.New("planner: obstacles without collision links")
)

// Evaluation parameter errors, re-exported for callers of ComputeAction.
var (
	ErrMissingParameter = symbolic.ErrMissingParameter
	ErrUnknownParameter = symbolic.ErrUnknownParameter
	ErrParameterSize    = symbolic.ErrParameterSize
)
