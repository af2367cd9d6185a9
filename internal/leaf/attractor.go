package leaf

import (
	"github.com/pkg/errors"

	"github.com/san-kum/fabrics/internal/diffmap"
	"github.com/san-kum/fabrics/internal/lagrangian"
	"github.com/san-kum/fabrics/internal/symbolic"
)

// AttractorParams shapes the variable-mass attractor.
type AttractorParams struct {
	K       float64 `yaml:"k"`
	APsi    float64 `yaml:"a_psi"`
	AM      float64 `yaml:"a_m"`
	MassMin float64 `yaml:"mass_min"`
	MassMax float64 `yaml:"mass_max"`
}

func DefaultAttractor() AttractorParams {
	return AttractorParams{K: 5, APsi: 10, AM: 0.75, MassMin: 0.3, MassMax: 2}
}

func (p AttractorParams) validate() error {
	if p.K <= 0 || p.APsi <= 0 {
		return errors.Wrapf(ErrInvalidParam, "attractor gains must be positive (k=%g, a_psi=%g)", p.K, p.APsi)
	}
	if p.MassMin <= 0 || p.MassMax < p.MassMin {
		return errors.Wrapf(ErrInvalidParam, "attractor mass range [%g, %g]", p.MassMin, p.MassMax)
	}
	return nil
}

// smoothDistance is ||x|| + log(1 + exp(-2*a*||x||)) / a, a distance with a
// smooth minimum at the origin.
func smoothDistance(x symbolic.Vector, a float64) *symbolic.Expr {
	r := x.Norm()
	soft := symbolic.Log(symbolic.Add(symbolic.One(), symbolic.Exp(symbolic.Mul(symbolic.Const(-2*a), r))))
	return symbolic.Add(r, symbolic.Mul(symbolic.Const(1/a), soft))
}

// variableMass is ((m_max - m_min)*exp(-(a_m*||x||)^2) + m_min) * I.
func variableMass(x symbolic.Vector, p AttractorParams) symbolic.Matrix {
	decay := symbolic.Exp(symbolic.Neg(symbolic.Square(symbolic.Mul(symbolic.Const(p.AM), x.Norm()))))
	s := symbolic.Add(symbolic.Mul(symbolic.Const(p.MassMax-p.MassMin), decay), symbolic.Const(p.MassMin))
	return symbolic.Diagonal(len(x), s)
}

func attract(l *Leaf, w *symbolic.Expr, p AttractorParams) *Leaf {
	l.potential = symbolic.Mul(symbolic.Mul(weightOrOne(w), symbolic.Const(p.K)), smoothDistance(l.x, p.APsi))
	l.energy = lagrangian.Energy(variableMass(l.x, p), l.xdot)
	return l
}

// NewAttractor pulls the task position of m toward its origin with a mass
// that grows close to the goal.
func NewAttractor(name string, m *diffmap.Map, w *symbolic.Expr, p AttractorParams) (*Leaf, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	l := attract(newLeaf(name, Forcing, m), w, p)
	return l, l.Validate()
}

// NewQuadraticAttractor uses psi = w*k*||x||^2 with identity mass.
func NewQuadraticAttractor(name string, m *diffmap.Map, w *symbolic.Expr, k float64) (*Leaf, error) {
	if k <= 0 {
		return nil, errors.Wrapf(ErrInvalidParam, "quadratic gain %g", k)
	}
	l := newLeaf(name, Forcing, m)
	l.potential = symbolic.Mul(symbolic.Mul(weightOrOne(w), symbolic.Const(k)), l.x.Dot(l.x))
	l.energy = lagrangian.Energy(symbolic.Identity(m.Dim()), l.xdot)
	return l, l.Validate()
}

// NewExponentialAttractor uses psi = w*exp(c*||x||^2) with identity mass and
// carries its own damper.
func NewExponentialAttractor(name string, m *diffmap.Map, w *symbolic.Expr, c float64, d lagrangian.Damper) (*Leaf, error) {
	if c <= 0 {
		return nil, errors.Wrapf(ErrInvalidParam, "exponential rate %g", c)
	}
	l := newLeaf(name, Damped, m)
	l.potential = symbolic.Mul(weightOrOne(w), symbolic.Exp(symbolic.Mul(symbolic.Const(c), l.x.Dot(l.x))))
	l.energy = lagrangian.Energy(symbolic.Identity(m.Dim()), l.xdot)
	l.damper = &d
	return l, l.Validate()
}

// NewRotationAttractor aligns two scalar kinematic expressions so that
// b - a equals offset.
func NewRotationAttractor(name string, a, b *symbolic.Expr, q, qdot symbolic.Vector, offset float64, w *symbolic.Expr, p AttractorParams) (*Leaf, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	phi := symbolic.Vector{symbolic.Sub(symbolic.Sub(b, a), symbolic.Const(offset))}
	m, err := diffmap.New(phi, q, qdot)
	if err != nil {
		return nil, err
	}
	l := attract(newLeaf(name, Forcing, m), w, p)
	return l, l.Validate()
}

// NewTimeVariantAttractor follows desired(t) with a time-variant map.
func NewTimeVariantAttractor(name string, fk, q, qdot, desired symbolic.Vector, t *symbolic.Expr, w *symbolic.Expr, p AttractorParams) (*Leaf, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if len(fk) != len(desired) {
		return nil, errors.Wrapf(ErrDimension, "%s: fk has %d components, desired has %d", name, len(fk), len(desired))
	}
	m, err := diffmap.NewTimeVariant(fk.Sub(desired), q, qdot, t)
	if err != nil {
		return nil, err
	}
	l := attract(newLeaf(name, Forcing, m), w, p)
	return l, l.Validate()
}

// NewDynamicAttractor tracks a reference whose position, velocity and
// acceleration are supplied every tick.
func NewDynamicAttractor(name string, fk, q, qdot symbolic.Vector, ref diffmap.Reference, w *symbolic.Expr, k float64) (*Leaf, error) {
	if k <= 0 {
		return nil, errors.Wrapf(ErrInvalidParam, "dynamic gain %g", k)
	}
	m, err := diffmap.NewRelative(fk, q, qdot, ref)
	if err != nil {
		return nil, err
	}
	l := newLeaf(name, Dynamic, m)
	l.potential = symbolic.Mul(symbolic.Mul(weightOrOne(w), symbolic.Const(k)), l.x.Dot(l.x))
	l.energy = lagrangian.Energy(symbolic.Identity(m.Dim()), l.xdot)
	l.reference = &ref
	return l, l.Validate()
}

// NewSplineAttractor tracks traj; the reference symbols are filled from
// the trajectory samples at evaluation time.
func NewSplineAttractor(name string, fk, q, qdot symbolic.Vector, ref diffmap.Reference, traj *Trajectory, w *symbolic.Expr, p AttractorParams) (*Leaf, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if traj == nil {
		return nil, errors.Wrapf(ErrInvalidLeaf, "%s: nil trajectory", name)
	}
	m, err := diffmap.NewRelative(fk, q, qdot, ref)
	if err != nil {
		return nil, err
	}
	l := newLeaf(name, Spline, m)
	l.potential = symbolic.Mul(symbolic.Mul(weightOrOne(w), symbolic.Const(p.K)), smoothDistance(l.x, p.APsi))
	l.energy = lagrangian.Energy(symbolic.Identity(m.Dim()), l.xdot)
	l.reference = &ref
	l.traj = traj
	return l, l.Validate()
}

// WithDamper returns a copy of l carrying d. The fabric damps with the
// first leaf that carries a damper.
func (l *Leaf) WithDamper(d lagrangian.Damper) *Leaf {
	c := *l
	c.damper = &d
	return &c
}
