package leaf

import (
	"github.com/pkg/errors"

	"github.com/san-kum/fabrics/internal/diffmap"
	"github.com/san-kum/fabrics/internal/lagrangian"
	"github.com/san-kum/fabrics/internal/symbolic"
)

// Barrier parameterizes the 1-D avoidance geometry
//
//	h  = -lambda_g / x^p_g * xdot^2
//	Le =  lambda_f / x^p_f * s(xdot) * xdot^2
//
// with s(xdot) = (1 - sign(xdot)) / 2 active only while approaching.
type Barrier struct {
	GeometryLambda   float64 `yaml:"geometry_lambda"`
	GeometryExponent float64 `yaml:"geometry_exponent"`
	FinslerLambda    float64 `yaml:"finsler_lambda"`
	FinslerExponent  float64 `yaml:"finsler_exponent"`
}

func DefaultCollision() Barrier {
	return Barrier{GeometryLambda: 0.5, GeometryExponent: 5, FinslerLambda: 0.1, FinslerExponent: 5}
}

func DefaultLimit() Barrier {
	return Barrier{GeometryLambda: 0.1, GeometryExponent: 1, FinslerLambda: 0.1, FinslerExponent: 2}
}

func (b Barrier) validate() error {
	if b.GeometryLambda <= 0 || b.FinslerLambda <= 0 {
		return errors.Wrapf(ErrInvalidParam, "barrier gains must be positive (%g, %g)", b.GeometryLambda, b.FinslerLambda)
	}
	return nil
}

// approaching is 1 for xdot < 0, 0 for xdot > 0 and 0.5 at rest.
func approaching(xdot *symbolic.Expr) *symbolic.Expr {
	return symbolic.Mul(symbolic.Const(0.5), symbolic.Sub(symbolic.One(), symbolic.Sign(xdot)))
}

func barrier(name string, m *diffmap.Map, b Barrier, switchGeometry bool) (*Leaf, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	if m.Dim() != 1 {
		return nil, errors.Wrapf(ErrDimension, "%s: barrier needs a scalar map, got %d", name, m.Dim())
	}
	l := newLeaf(name, Geometry, m)
	x, xdot := l.x[0], l.xdot[0]
	s := approaching(xdot)
	v2 := symbolic.Square(xdot)

	h := symbolic.Div(symbolic.Mul(symbolic.Const(-b.GeometryLambda), v2), symbolic.Pow(x, b.GeometryExponent))
	if switchGeometry {
		h = symbolic.Mul(s, h)
	}
	l.geometry = symbolic.Vector{h}
	l.energy = symbolic.Div(symbolic.Mul(symbolic.Const(b.FinslerLambda), symbolic.Mul(s, v2)), symbolic.Pow(x, b.FinslerExponent))
	return l, l.Validate()
}

// Obstacle is a sphere whose center and radius are evaluation parameters.
type Obstacle struct {
	Center symbolic.Vector
	Radius *symbolic.Expr
}

// NewCollisionAvoidance keeps the body sphere at point fk outside obstacle.
func NewCollisionAvoidance(name string, fk, q, qdot symbolic.Vector, obstacle Obstacle, bodyRadius *symbolic.Expr, b Barrier) (*Leaf, error) {
	if len(fk) != len(obstacle.Center) {
		return nil, errors.Wrapf(ErrDimension, "%s: fk has %d components, obstacle %d", name, len(fk), len(obstacle.Center))
	}
	dist := symbolic.Sub(symbolic.Sub(fk.Sub(obstacle.Center).Norm(), obstacle.Radius), bodyRadius)
	m, err := diffmap.New(symbolic.Vector{dist}, q, qdot)
	if err != nil {
		return nil, err
	}
	return barrier(name, m, b, true)
}

// NewSelfCollisionAvoidance keeps two body spheres apart.
func NewSelfCollisionAvoidance(name string, fkA, fkB, q, qdot symbolic.Vector, radiusA, radiusB *symbolic.Expr, b Barrier) (*Leaf, error) {
	if len(fkA) != len(fkB) {
		return nil, errors.Wrapf(ErrDimension, "%s: link points have %d and %d components", name, len(fkA), len(fkB))
	}
	dist := symbolic.Sub(fkA.Sub(fkB).Norm(), symbolic.Add(radiusA, radiusB))
	m, err := diffmap.New(symbolic.Vector{dist}, q, qdot)
	if err != nil {
		return nil, err
	}
	return barrier(name, m, b, true)
}

// NewLimitAvoidance keeps joint index away from bound. For an upper bound
// the distance is bound - q_i, otherwise q_i - bound.
func NewLimitAvoidance(name string, q, qdot symbolic.Vector, index int, bound float64, upper bool, b Barrier) (*Leaf, error) {
	if index < 0 || index >= len(q) {
		return nil, errors.Wrapf(ErrDimension, "%s: joint %d out of range", name, index)
	}
	dist := symbolic.Sub(q[index], symbolic.Const(bound))
	if upper {
		dist = symbolic.Sub(symbolic.Const(bound), q[index])
	}
	m, err := diffmap.New(symbolic.Vector{dist}, q, qdot)
	if err != nil {
		return nil, err
	}
	return barrier(name, m, b, false)
}

// NewRedundancySolver pulls the configuration toward q0 in the null space
// of the other behaviors: h = ||xdot||^2 * x, Le = lambda*||xdot||^2.
func NewRedundancySolver(name string, q, qdot symbolic.Vector, q0 []float64, lambda float64) (*Leaf, error) {
	if len(q0) != len(q) {
		return nil, errors.Wrapf(ErrDimension, "%s: rest pose has %d entries for %d joints", name, len(q0), len(q))
	}
	if lambda <= 0 {
		return nil, errors.Wrapf(ErrInvalidParam, "%s: lambda %g", name, lambda)
	}
	m, err := diffmap.New(q.Sub(symbolic.ConstVector(q0...)), q, qdot)
	if err != nil {
		return nil, err
	}
	l := newLeaf(name, Geometry, m)
	speed := l.xdot.Dot(l.xdot)
	l.geometry = l.x.Scale(speed)
	l.energy = symbolic.Mul(symbolic.Const(lambda), speed)
	return l, l.Validate()
}

// NewBaseInertia adds a constant mass on the identity map with no potential.
// It keeps the summed mass matrix positive definite.
func NewBaseInertia(name string, q, qdot symbolic.Vector, mass float64) (*Leaf, error) {
	if mass <= 0 {
		return nil, errors.Wrapf(ErrInvalidParam, "%s: mass %g", name, mass)
	}
	m, err := diffmap.New(q, q, qdot)
	if err != nil {
		return nil, err
	}
	l := newLeaf(name, Forcing, m)
	l.energy = lagrangian.Energy(symbolic.Diagonal(m.Dim(), symbolic.Const(mass)), l.xdot)
	l.potential = symbolic.Zero()
	return l, l.Validate()
}
