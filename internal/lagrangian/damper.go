package lagrangian

import "github.com/san-kum/fabrics/internal/symbolic"

// Damper shapes the speed-dependent damping applied near the primary goal.
// beta switches from BetaDistant to BetaClose as the goal distance drops
// below RadiusShift, eta lowers damping while the energy is high.
type Damper struct {
	AlphaB      float64 `yaml:"alpha_b"`
	AlphaEta    float64 `yaml:"alpha_eta"`
	AlphaShift  float64 `yaml:"alpha_shift"`
	BetaDistant float64 `yaml:"beta_distant"`
	BetaClose   float64 `yaml:"beta_close"`
	RadiusShift float64 `yaml:"radius_shift"`
}

func DefaultDamper() Damper {
	return Damper{
		AlphaB:      0.5,
		AlphaEta:    0.5,
		AlphaShift:  0.5,
		BetaDistant: 0.01,
		BetaClose:   6.5,
		RadiusShift: 0.1,
	}
}

func half(e *symbolic.Expr) *symbolic.Expr {
	return symbolic.Mul(symbolic.Const(0.5), symbolic.Add(e, symbolic.One()))
}

// Beta is the distance-dependent damping gain for task position x.
func (d Damper) Beta(x symbolic.Vector) *symbolic.Expr {
	shifted := symbolic.Sub(x.Norm(), symbolic.Const(d.RadiusShift))
	s := half(symbolic.Tanh(symbolic.Mul(symbolic.Const(-d.AlphaB), shifted)))
	return symbolic.Add(symbolic.Mul(s, symbolic.Const(d.BetaClose-d.BetaDistant)), symbolic.Const(d.BetaDistant))
}

// Eta is the energy-dependent blending factor in (0, 1).
func (d Damper) Eta(le *symbolic.Expr) *symbolic.Expr {
	arg := symbolic.Sub(symbolic.Mul(symbolic.Const(-d.AlphaEta), le), symbolic.Const(d.AlphaShift))
	return half(symbolic.Tanh(arg))
}

// Coefficient is b = beta + eta*(beta_close - beta). The damping force
// b*M*xdot never adds energy because b is positive.
func (d Damper) Coefficient(x symbolic.Vector, le *symbolic.Expr) *symbolic.Expr {
	beta := d.Beta(x)
	gap := symbolic.Sub(symbolic.Const(d.BetaClose), beta)
	return symbolic.Add(beta, symbolic.Mul(d.Eta(le), gap))
}
