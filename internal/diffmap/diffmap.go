// Package diffmap builds differential maps: a task-space position phi(q) with
// its Jacobian, Jacobian derivative and the acceleration bias needed to pull
// task-space dynamics back into configuration space.
//
// For every map the task acceleration satisfies
//
//	xddot = J * qddot + Bias
//
// where Bias is Jdot*qdot for a static map and carries the explicit time or
// reference terms for time-variant and relative maps.
package diffmap

import (
	"github.com/pkg/errors"

	"github.com/san-kum/fabrics/internal/symbolic"
)

var (
	ErrDimension         = errors.New("diffmap: dimension mismatch")
	ErrNotDifferentiable = errors.New("diffmap: configuration symbols must be variables")
)

// Reference is a moving task-space origin supplied as parameters.
type Reference struct {
	X, Xdot, Xddot symbolic.Vector
}

type Map struct {
	q, qdot symbolic.Vector
	phi     symbolic.Vector
	xdot    symbolic.Vector
	bias    symbolic.Vector
	j, jdot symbolic.Matrix
	t       *symbolic.Expr
}

func checkConfig(q, qdot symbolic.Vector) error {
	if len(q) != len(qdot) {
		return errors.Wrapf(ErrDimension, "q has %d entries, qdot has %d", len(q), len(qdot))
	}
	for i := range q {
		if !q[i].IsVar() || !qdot[i].IsVar() {
			return errors.Wrapf(ErrNotDifferentiable, "component %d", i)
		}
	}
	return nil
}

func derive(phi, q, qdot symbolic.Vector) (*Map, error) {
	if err := checkConfig(q, qdot); err != nil {
		return nil, err
	}
	if len(phi) == 0 {
		return nil, errors.Wrap(ErrDimension, "empty task map")
	}
	j, err := symbolic.Jacobian(phi, q)
	if err != nil {
		return nil, errors.Wrap(ErrNotDifferentiable, err.Error())
	}
	jqdot := j.MulVec(qdot)
	jdot, err := symbolic.Jacobian(jqdot, q)
	if err != nil {
		return nil, errors.Wrap(ErrNotDifferentiable, err.Error())
	}
	return &Map{
		q:    q,
		qdot: qdot,
		phi:  phi,
		xdot: jqdot,
		bias: jdot.MulVec(qdot),
		j:    j,
		jdot: jdot,
	}, nil
}

// New builds a static map x = phi(q).
func New(phi, q, qdot symbolic.Vector) (*Map, error) {
	return derive(phi, q, qdot)
}

// NewTimeVariant builds a map x = phi(q, t) with explicit time dependence.
func NewTimeVariant(phi, q, qdot symbolic.Vector, t *symbolic.Expr) (*Map, error) {
	m, err := derive(phi, q, qdot)
	if err != nil {
		return nil, err
	}
	if !t.IsVar() {
		return nil, errors.Wrap(ErrNotDifferentiable, "time symbol")
	}

	tv := symbolic.Vector{t}
	phiT, err := symbolic.Jacobian(phi, tv)
	if err != nil {
		return nil, err
	}
	dphi := column(phiT)
	mixed, err := symbolic.Jacobian(dphi, m.q)
	if err != nil {
		return nil, err
	}
	phiTT, err := symbolic.Jacobian(dphi, tv)
	if err != nil {
		return nil, err
	}

	m.t = t
	m.xdot = m.xdot.Add(dphi)
	m.bias = m.bias.Add(mixed.MulVec(qdot).Scale(symbolic.Const(2))).Add(column(phiTT))
	return m, nil
}

// NewRelative builds x = phi(q) - ref.X where the reference moves with
// velocity ref.Xdot and acceleration ref.Xddot.
func NewRelative(phi, q, qdot symbolic.Vector, ref Reference) (*Map, error) {
	if len(ref.X) != len(phi) || len(ref.Xdot) != len(phi) || len(ref.Xddot) != len(phi) {
		return nil, errors.Wrapf(ErrDimension, "reference does not match task dimension %d", len(phi))
	}
	m, err := derive(phi.Sub(ref.X), q, qdot)
	if err != nil {
		return nil, err
	}
	m.xdot = m.xdot.Sub(ref.Xdot)
	m.bias = m.bias.Sub(ref.Xddot)
	return m, nil
}

func column(m symbolic.Matrix) symbolic.Vector {
	v := make(symbolic.Vector, m.Rows())
	for i := range m {
		v[i] = m[i][0]
	}
	return v
}

func (m *Map) Phi() symbolic.Vector  { return m.phi }
func (m *Map) J() symbolic.Matrix    { return m.j }
func (m *Map) Jdot() symbolic.Matrix { return m.jdot }
func (m *Map) Xdot() symbolic.Vector { return m.xdot }
func (m *Map) Bias() symbolic.Vector { return m.bias }
func (m *Map) Q() symbolic.Vector    { return m.q }
func (m *Map) Qdot() symbolic.Vector { return m.qdot }

// Time returns the time symbol of a time-variant map, or nil.
func (m *Map) Time() *symbolic.Expr { return m.t }

// Dim is the task-space dimension.
func (m *Map) Dim() int { return len(m.phi) }

// ConfigDim is the configuration-space dimension.
func (m *Map) ConfigDim() int { return len(m.q) }

// Substitution binds task symbols x and xdot to this map's position and velocity.
func (m *Map) Substitution(x, xdot symbolic.Vector) (symbolic.Substitution, error) {
	if len(x) != m.Dim() || len(xdot) != m.Dim() {
		return nil, errors.Wrapf(ErrDimension, "task symbols have %d/%d entries, map has %d", len(x), len(xdot), m.Dim())
	}
	sx, err := symbolic.Bind(x, m.phi)
	if err != nil {
		return nil, err
	}
	sxd, err := symbolic.Bind(xdot, m.xdot)
	if err != nil {
		return nil, err
	}
	return sx.Merge(sxd), nil
}
