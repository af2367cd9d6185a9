// Package leaf defines the task-space behaviors composed into a fabric.
//
// A [Leaf] is a closed variant over [Kind]: forcing leaves carry a potential,
// geometry leaves carry a geometry term, and the damped, dynamic and spline
// variants are forcing leaves with a damper, a moving reference or a sampled
// trajectory attached. Every leaf owns one differential map and one energy.
package leaf

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/san-kum/fabrics/internal/diffmap"
	"github.com/san-kum/fabrics/internal/lagrangian"
	"github.com/san-kum/fabrics/internal/symbolic"
)

type Kind int

const (
	Forcing Kind = iota
	Geometry
	Damped
	Dynamic
	Spline
)

func (k Kind) String() string {
	switch k {
	case Forcing:
		return "forcing"
	case Geometry:
		return "geometry"
	case Damped:
		return "damped"
	case Dynamic:
		return "dynamic"
	case Spline:
		return "spline"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var (
	ErrInvalidLeaf  = errors.New("leaf: invalid leaf")
	ErrDimension    = errors.New("leaf: task dimension does not match map")
	ErrInvalidParam = errors.New("leaf: invalid parameter")
)

type Leaf struct {
	name      string
	kind      Kind
	m         *diffmap.Map
	x, xdot   symbolic.Vector
	energy    *symbolic.Expr
	potential *symbolic.Expr
	geometry  symbolic.Vector
	damper    *lagrangian.Damper
	reference *diffmap.Reference
	traj      *Trajectory
}

// System is a leaf's derived task-space dynamics. Energy is the system of
// the leaf's energy alone; Force adds the potential gradient for forcing
// variants and is M*h for geometry leaves.
type System struct {
	Energy lagrangian.Spec
	Force  lagrangian.Spec
}

func newLeaf(name string, kind Kind, m *diffmap.Map) *Leaf {
	return &Leaf{
		name: name,
		kind: kind,
		m:    m,
		x:    symbolic.Vars("leaf_"+name+"_x", m.Dim()),
		xdot: symbolic.Vars("leaf_"+name+"_xdot", m.Dim()),
	}
}

func (l *Leaf) Name() string                  { return l.name }
func (l *Leaf) Kind() Kind                    { return l.kind }
func (l *Leaf) Map() *diffmap.Map             { return l.m }
func (l *Leaf) X() symbolic.Vector            { return l.x }
func (l *Leaf) Xdot() symbolic.Vector         { return l.xdot }
func (l *Leaf) Energy() *symbolic.Expr        { return l.energy }
func (l *Leaf) Potential() *symbolic.Expr     { return l.potential }
func (l *Leaf) Geometry() symbolic.Vector     { return l.geometry }
func (l *Leaf) Damper() *lagrangian.Damper    { return l.damper }
func (l *Leaf) Reference() *diffmap.Reference { return l.reference }
func (l *Leaf) Trajectory() *Trajectory       { return l.traj }
func (l *Leaf) IsGeometry() bool              { return l.kind == Geometry }
func (l *Leaf) String() string                { return l.kind.String() + ":" + l.name }

// Validate checks the variant invariants: exactly one of potential and
// geometry, task symbols sized like the map, and the variant payload present.
func (l *Leaf) Validate() error {
	if l.name == "" {
		return errors.Wrap(ErrInvalidLeaf, "empty name")
	}
	if l.m == nil {
		return errors.Wrapf(ErrInvalidLeaf, "%s: no differential map", l.name)
	}
	n := l.m.Dim()
	if len(l.x) != n || len(l.xdot) != n {
		return errors.Wrapf(ErrDimension, "%s: %d task symbols for a %d dimensional map", l.name, len(l.x), n)
	}
	if l.energy == nil {
		return errors.Wrapf(ErrInvalidLeaf, "%s: no energy", l.name)
	}
	if (l.potential == nil) == (l.geometry == nil) {
		return errors.Wrapf(ErrInvalidLeaf, "%s: needs exactly one of potential and geometry", l.name)
	}
	if (l.kind == Geometry) != (l.geometry != nil) {
		return errors.Wrapf(ErrInvalidLeaf, "%s: %s leaf with wrong payload", l.name, l.kind)
	}
	if l.geometry != nil && len(l.geometry) != n {
		return errors.Wrapf(ErrDimension, "%s: geometry has %d components, map has %d", l.name, len(l.geometry), n)
	}
	switch l.kind {
	case Damped:
		if l.damper == nil {
			return errors.Wrapf(ErrInvalidLeaf, "%s: damped leaf without damper", l.name)
		}
	case Dynamic:
		if l.reference == nil {
			return errors.Wrapf(ErrInvalidLeaf, "%s: dynamic leaf without reference", l.name)
		}
	case Spline:
		if l.reference == nil || l.traj == nil {
			return errors.Wrapf(ErrInvalidLeaf, "%s: spline leaf without trajectory", l.name)
		}
		if l.traj.Dim() != n {
			return errors.Wrapf(ErrDimension, "%s: trajectory is %d dimensional, map has %d", l.name, l.traj.Dim(), n)
		}
	}
	return nil
}

// Derive computes the leaf's task-space systems.
func (l *Leaf) Derive() (System, error) {
	if err := l.Validate(); err != nil {
		return System{}, err
	}
	energy, err := lagrangian.Derive(l.energy, l.x, l.xdot)
	if err != nil {
		return System{}, errors.Wrapf(err, "leaf %s", l.name)
	}

	switch l.kind {
	case Geometry:
		return System{
			Energy: energy,
			Force:  lagrangian.Spec{M: energy.M, F: energy.M.MulVec(l.geometry)},
		}, nil
	case Forcing, Damped, Dynamic, Spline:
		grad, err := symbolic.Gradient(l.potential, l.x)
		if err != nil {
			return System{}, errors.Wrapf(err, "leaf %s potential", l.name)
		}
		return System{
			Energy: energy,
			Force:  lagrangian.Spec{M: energy.M, F: energy.F.Add(grad)},
		}, nil
	}
	return System{}, errors.Wrapf(ErrInvalidLeaf, "%s: unknown kind %d", l.name, int(l.kind))
}

func weightOrOne(w *symbolic.Expr) *symbolic.Expr {
	if w == nil {
		return symbolic.One()
	}
	return w
}
