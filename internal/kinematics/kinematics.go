// Package kinematics provides symbolic forward kinematics for the robots the
// planner drives: a free point, a planar serial arm and a differential-drive
// base. Each model also compiles to a numeric [Evaluator] for rendering and
// metrics.
package kinematics

import (
	"github.com/pkg/errors"

	"github.com/san-kum/fabrics/internal/symbolic"
)

var (
	ErrUnknownLink = errors.New("kinematics: unknown link")
	ErrDimension   = errors.New("kinematics: configuration dimension mismatch")
)

// EndEffector is the link name every model exposes for its tool point.
const EndEffector = "ee"

// Model is a robot whose links have symbolic positions.
type Model interface {
	Dim() int
	Links() []string
	Fk(q symbolic.Vector, link string) (symbolic.Vector, error)
}

func checkDim(q symbolic.Vector, n int) error {
	if len(q) != n {
		return errors.Wrapf(ErrDimension, "want %d joints, got %d", n, len(q))
	}
	return nil
}

// PointMass is a free point whose configuration is its position.
type PointMass struct {
	dim int
}

func NewPointMass(dim int) *PointMass { return &PointMass{dim: dim} }

func (p *PointMass) Dim() int        { return p.dim }
func (p *PointMass) Links() []string { return []string{EndEffector} }

func (p *PointMass) Fk(q symbolic.Vector, link string) (symbolic.Vector, error) {
	if err := checkDim(q, p.dim); err != nil {
		return nil, err
	}
	if link != EndEffector {
		return nil, errors.Wrapf(ErrUnknownLink, "%q", link)
	}
	return q, nil
}
