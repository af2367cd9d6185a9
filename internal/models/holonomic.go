package models

import "github.com/san-kum/fabrics/internal/dynamo"

// Holonomic is a fully actuated robot commanded by joint acceleration. Its
// state is (q, qdot). A point mass and a planar arm are both Holonomic; only
// their kinematics differ.
type Holonomic struct {
	Name string
	Dof  int
	// Friction is a viscous term subtracted from the commanded acceleration.
	Friction float64
}

func NewHolonomic(name string, dof int) *Holonomic {
	return &Holonomic{Name: name, Dof: dof}
}

func (h *Holonomic) StateDim() int    { return 2 * h.Dof }
func (h *Holonomic) ControlDim() int  { return h.Dof }
func (h *Holonomic) PositionDim() int { return h.Dof }

func (h *Holonomic) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	n := h.Dof
	dx := make(dynamo.State, 2*n)
	copy(dx[:n], x[n:])
	for i := 0; i < n; i++ {
		a := -h.Friction * x[n+i]
		if i < len(u) {
			a += u[i]
		}
		dx[n+i] = a
	}
	return dx
}

// Energy is the kinetic energy of a unit-mass configuration space.
func (h *Holonomic) Energy(x dynamo.State) float64 {
	e := 0.0
	for _, v := range x[h.Dof:] {
		e += 0.5 * v * v
	}
	return e
}

func (h *Holonomic) Position(x dynamo.State) []float64 { return x[:h.Dof] }

// Observe writes the planner inputs for x into dst. The slices alias x.
func (h *Holonomic) Observe(x dynamo.State, dst map[string][]float64) {
	dst[InputQ] = x[:h.Dof]
	dst[InputQdot] = x[h.Dof:]
}

// Initial builds a state at rest at q.
func (h *Holonomic) Initial(q []float64) dynamo.State {
	x := make(dynamo.State, 2*h.Dof)
	copy(x, q)
	return x
}
