package models

import (
	"math"

	"github.com/san-kum/fabrics/internal/dynamo"
)

// DiffDrive is a differential-drive base with state (x, y, theta, v, omega)
// commanded by the forward and angular accelerations.
type DiffDrive struct {
	// MaxSpeed clamps |v| when positive.
	MaxSpeed float64
}

func NewDiffDrive() *DiffDrive {
	return &DiffDrive{}
}

func (d *DiffDrive) StateDim() int   { return 5 }
func (d *DiffDrive) ControlDim() int { return 2 }

func (d *DiffDrive) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	theta, v, omega := x[2], x[3], x[4]

	av, aw := 0.0, 0.0
	if len(u) >= 2 {
		av, aw = u[0], u[1]
	}
	if d.MaxSpeed > 0 && math.Abs(v) >= d.MaxSpeed && av*v > 0 {
		av = 0
	}

	return dynamo.State{v * math.Cos(theta), v * math.Sin(theta), omega, av, aw}
}

func (d *DiffDrive) Energy(x dynamo.State) float64 {
	return 0.5 * (x[3]*x[3] + x[4]*x[4])
}

func (d *DiffDrive) Position(x dynamo.State) []float64 { return x[:3] }

// Observe writes q, the configuration velocity and the actuated velocity
// for x into dst.
func (d *DiffDrive) Observe(x dynamo.State, dst map[string][]float64) {
	theta, v, omega := x[2], x[3], x[4]
	qdot := dst[InputQdot]
	if len(qdot) != 3 {
		qdot = make([]float64, 3)
	}
	qdot[0], qdot[1], qdot[2] = v*math.Cos(theta), v*math.Sin(theta), omega

	dst[InputQ] = x[:3]
	dst[InputQdot] = qdot
	dst[InputQudot] = x[3:5]
}

// Initial builds a state at rest at pose (x, y, theta).
func (d *DiffDrive) Initial(pose []float64) dynamo.State {
	x := make(dynamo.State, 5)
	copy(x, pose)
	return x
}
