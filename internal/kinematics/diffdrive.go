package kinematics

import (
	"github.com/pkg/errors"

	"github.com/san-kum/fabrics/internal/symbolic"
)

// DiffDrive is a planar base with configuration (x, y, theta) driven by a
// forward speed and a turn rate. The links are the wheel-axle center and a
// point Offset ahead of it.
type DiffDrive struct {
	Offset float64
}

const (
	LinkBase  = "base"
	LinkFront = "front"
)

func NewDiffDrive(offset float64) *DiffDrive { return &DiffDrive{Offset: offset} }

func (d *DiffDrive) Dim() int         { return 3 }
func (d *DiffDrive) ActuatedDim() int { return 2 }
func (d *DiffDrive) Links() []string  { return []string{LinkBase, LinkFront, EndEffector} }

// Fk returns the planar position of link. The end effector is the front point.
func (d *DiffDrive) Fk(q symbolic.Vector, link string) (symbolic.Vector, error) {
	if err := checkDim(q, 3); err != nil {
		return nil, err
	}
	switch link {
	case LinkBase:
		return symbolic.Vector{q[0], q[1]}, nil
	case LinkFront, EndEffector:
		l := symbolic.Const(d.Offset)
		return symbolic.Vector{
			symbolic.Add(q[0], symbolic.Mul(l, symbolic.Cos(q[2]))),
			symbolic.Add(q[1], symbolic.Mul(l, symbolic.Sin(q[2]))),
		}, nil
	}
	return nil, errors.Wrapf(ErrUnknownLink, "%q", link)
}

// Relation is N(q) in qdot = N(q) * (v, omega).
func (d *DiffDrive) Relation(q symbolic.Vector) (symbolic.Matrix, error) {
	if err := checkDim(q, 3); err != nil {
		return nil, err
	}
	zero, one := symbolic.Zero(), symbolic.One()
	return symbolic.Matrix{
		{symbolic.Cos(q[2]), zero},
		{symbolic.Sin(q[2]), zero},
		{zero, one},
	}, nil
}
