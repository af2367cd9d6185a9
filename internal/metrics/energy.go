package metrics

import (
	"math"

	"github.com/san-kum/fabrics/internal/dynamo"
)

// Energy is the kinetic energy the robot is left with at the last observed
// tick. A settled run ends near zero; Peak is the largest energy seen.
type Energy struct {
	sys   dynamo.Hamiltonian
	last  float64
	peak  float64
	valid bool
}

func NewEnergy(sys dynamo.Hamiltonian) *Energy {
	return &Energy{sys: sys}
}

func (e *Energy) Name() string { return "energy" }

func (e *Energy) Observe(x dynamo.State, u dynamo.Control, t float64) {
	e.last = e.sys.Energy(x)
	e.peak = math.Max(e.peak, e.last)
	e.valid = true
}

func (e *Energy) Value() float64 {
	if !e.valid {
		return math.NaN()
	}
	return e.last
}

func (e *Energy) Peak() float64 { return e.peak }

func (e *Energy) Reset() {
	e.last, e.peak, e.valid = 0, 0, false
}
