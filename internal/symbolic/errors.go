package symbolic

import "github.com/pkg/errors"

var (
	// ErrNotDifferentiable indicates a derivative taken with respect to something
	// other than a plain variable.
	ErrNotDifferentiable = errors.New("symbolic: derivative requires a variable")

	// ErrNotVariable indicates a compile input that is not a plain variable.
	ErrNotVariable = errors.New("symbolic: input symbol is not a variable")

	// ErrUnboundVariable indicates an output depending on a variable that no input declares.
	ErrUnboundVariable = errors.New("symbolic: variable not bound to any input")

	// ErrDuplicateVariable indicates the same variable declared by two inputs.
	ErrDuplicateVariable = errors.New("symbolic: variable declared twice")

	// ErrMissingParameter indicates an evaluation without a declared input.
	ErrMissingParameter = errors.New("symbolic: missing parameter")

	// ErrUnknownParameter indicates an evaluation with an undeclared input.
	ErrUnknownParameter = errors.New("symbolic: unknown parameter")

	// ErrParameterSize indicates an input of the wrong length.
	ErrParameterSize = errors.New("symbolic: parameter has wrong size")

	// ErrDimension indicates mismatched vector or matrix shapes.
	ErrDimension = errors.New("symbolic: dimension mismatch")
)
