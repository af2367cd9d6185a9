package fabric

import (
	"github.com/san-kum/fabrics/internal/diffmap"
	"github.com/san-kum/fabrics/internal/lagrangian"
	"github.com/san-kum/fabrics/internal/symbolic"
)

// Pullback maps the task-space system s over symbols (x, xdot) through m:
//
//	M_q = J^T M J
//	f_q = J^T (f + M*bias)
//
// so that M_q*qddot + f_q = 0 reproduces M*xddot + f = 0 with
// xddot = J*qddot + bias.
func Pullback(s lagrangian.Spec, m *diffmap.Map, x, xdot symbolic.Vector) (lagrangian.Spec, error) {
	sub, err := m.Substitution(x, xdot)
	if err != nil {
		return lagrangian.Spec{}, err
	}
	mass := symbolic.SubstituteMatrix(s.M, sub)
	force := symbolic.SubstituteVector(s.F, sub)

	jt := m.J().T()
	return lagrangian.Spec{
		M: mass.Congruence(m.J()),
		F: jt.MulVec(force.Add(mass.MulVec(m.Bias()))),
	}, nil
}

// PullbackExpr substitutes task symbols into a scalar such as an energy.
func PullbackExpr(e *symbolic.Expr, m *diffmap.Map, x, xdot symbolic.Vector) (*symbolic.Expr, error) {
	sub, err := m.Substitution(x, xdot)
	if err != nil {
		return nil, err
	}
	return symbolic.Substitute(e, sub), nil
}
