// Package lagrangian derives equations of motion from energy functionals.
//
// A Lagrangian L(x, xdot) yields the system M*xddot + f = 0 with
//
//	M = d2L/dxdot2
//	F = jacobian(dL/dx, xdot)
//	f = F^T*xdot - dL/dx
package lagrangian

import (
	"github.com/pkg/errors"

	"github.com/san-kum/fabrics/internal/symbolic"
)

var ErrDimension = errors.New("lagrangian: position and velocity symbols differ in size")

// Spec is a second order system M*xddot + F = 0 over task symbols.
type Spec struct {
	M symbolic.Matrix
	F symbolic.Vector
}

func (s Spec) Dim() int { return len(s.F) }

// Add sums two specs of the same dimension.
func (s Spec) Add(o Spec) Spec {
	return Spec{M: s.M.Add(o.M), F: s.F.Add(o.F)}
}

// Zero returns the empty n-dimensional system.
func Zero(n int) Spec {
	return Spec{M: symbolic.NewMatrix(n, n), F: symbolic.ZeroVector(n)}
}

// Derive applies the Euler-Lagrange equations to l.
func Derive(l *symbolic.Expr, x, xdot symbolic.Vector) (Spec, error) {
	if len(x) != len(xdot) {
		return Spec{}, errors.Wrapf(ErrDimension, "%d vs %d", len(x), len(xdot))
	}
	dldx, err := symbolic.Gradient(l, x)
	if err != nil {
		return Spec{}, err
	}
	dldxdot, err := symbolic.Gradient(l, xdot)
	if err != nil {
		return Spec{}, err
	}
	m, err := symbolic.Jacobian(dldxdot, xdot)
	if err != nil {
		return Spec{}, err
	}
	mixed, err := symbolic.Jacobian(dldx, xdot)
	if err != nil {
		return Spec{}, err
	}
	return Spec{M: m, F: mixed.T().MulVec(xdot).Sub(dldx)}, nil
}

// Energy is Le = 1/2 * xdot^T * M * xdot for a constant or position
// dependent mass.
func Energy(m symbolic.Matrix, xdot symbolic.Vector) *symbolic.Expr {
	return symbolic.Mul(symbolic.Const(0.5), m.Quadratic(xdot))
}

// EnergyScale is the energizing coefficient
//
//	a = xdot^T (M*h - f) / (xdot^T M xdot)
//
// that keeps the energy of (M, f) constant along xddot = -h + a*xdot.
func EnergyScale(s Spec, h, xdot symbolic.Vector) *symbolic.Expr {
	num := xdot.Dot(s.M.MulVec(h).Sub(s.F))
	return symbolic.Div(num, s.M.Quadratic(xdot))
}
