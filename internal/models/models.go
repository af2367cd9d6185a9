package models

import (
	"github.com/san-kum/fabrics/internal/dynamo"
	"github.com/san-kum/fabrics/internal/fabric"
)

const (
	InputQ     = fabric.InputQ
	InputQdot  = fabric.InputQdot
	InputQudot = fabric.InputQudot
)

// Robot is a simulated robot the planner can read its state from.
type Robot interface {
	dynamo.System
	Observe(x dynamo.State, dst map[string][]float64)
	Position(x dynamo.State) []float64
	Initial(q []float64) dynamo.State
}

var (
	_ Robot              = (*Holonomic)(nil)
	_ Robot              = (*DiffDrive)(nil)
	_ dynamo.SecondOrder = (*Holonomic)(nil)
	_ dynamo.Hamiltonian = (*DiffDrive)(nil)
)
