package lagrangian

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/fabrics/internal/symbolic"
)

func eval(t *testing.T, e *symbolic.Expr, env map[string]float64) float64 {
	t.Helper()
	v, err := symbolic.Eval(e, env)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	return v
}

func TestDeriveVariableMass(t *testing.T) {
	x := symbolic.Vars("x", 1)
	xdot := symbolic.Vars("xdot", 1)
	mass := symbolic.Add(symbolic.One(), symbolic.Square(x[0]))
	l := Energy(symbolic.Matrix{{mass}}, xdot)

	spec, err := Derive(l, x, xdot)
	if err != nil {
		t.Fatal(err)
	}

	env := map[string]float64{"x_0": 0.6, "xdot_0": -1.5}
	if got, want := eval(t, spec.M[0][0], env), 1+0.36; math.Abs(got-want) > 1e-12 {
		t.Errorf("M = %v, want %v", got, want)
	}
	// m xddot + 1/2 m' xdot^2 = 0 with m' = 2x
	if got, want := eval(t, spec.F[0], env), 0.6*2.25; math.Abs(got-want) > 1e-12 {
		t.Errorf("f = %v, want %v", got, want)
	}
}

func TestDerivedMassIsSymmetric(t *testing.T) {
	x := symbolic.Vars("x", 2)
	xdot := symbolic.Vars("xdot", 2)

	// finsler-like energy with coupling between components
	coupling := symbolic.Mul(symbolic.Sin(x[0]), symbolic.Cos(x[1]))
	l := symbolic.Sum(
		symbolic.Mul(symbolic.Exp(x[0]), symbolic.Square(xdot[0])),
		symbolic.Mul(coupling, symbolic.Mul(xdot[0], xdot[1])),
		symbolic.Div(symbolic.Pow(xdot[1], 4), symbolic.Add(symbolic.Const(2), symbolic.Square(x[1]))),
	)
	spec, err := Derive(l, x, xdot)
	if err != nil {
		t.Fatal(err)
	}

	samples := [][4]float64{{0.1, 0.2, 0.3, -0.4}, {-1, 2, 0, 1}, {0.5, -0.5, 2, 2}}
	for _, s := range samples {
		env := map[string]float64{"x_0": s[0], "x_1": s[1], "xdot_0": s[2], "xdot_1": s[3]}
		a := eval(t, spec.M[0][1], env)
		b := eval(t, spec.M[1][0], env)
		if math.Abs(a-b) > 1e-12 {
			t.Errorf("sample %v: M01 %v != M10 %v", s, a, b)
		}
	}
}

func TestEnergyScaleConservesEnergy(t *testing.T) {
	x := symbolic.Vars("x", 2)
	xdot := symbolic.Vars("xdot", 2)
	h := symbolic.Vars("h", 2)

	m := symbolic.Diagonal(2, symbolic.Add(symbolic.Const(0.5), symbolic.Square(x[0])))
	spec, err := Derive(Energy(m, xdot), x, xdot)
	if err != nil {
		t.Fatal(err)
	}
	a := EnergyScale(spec, h, xdot)

	// energy rate xdot^T (M xddot + f) along xddot = -h + a xdot
	xddot := h.Neg().Add(xdot.Scale(a))
	rate := xdot.Dot(spec.M.MulVec(xddot).Add(spec.F))

	env := map[string]float64{"x_0": 0.4, "x_1": -0.2, "xdot_0": 0.7, "xdot_1": -1.1, "h_0": 2, "h_1": -3}
	if got := eval(t, rate, env); math.Abs(got) > 1e-12 {
		t.Errorf("energized system changes energy at rate %v", got)
	}
}

func TestDeriveDimensionMismatch(t *testing.T) {
	_, err := Derive(symbolic.One(), symbolic.Vars("x", 2), symbolic.Vars("xdot", 1))
	if !errors.Is(err, ErrDimension) {
		t.Errorf("expected ErrDimension, got %v", err)
	}
}

func TestDamperLimits(t *testing.T) {
	d := DefaultDamper()
	x := symbolic.Vars("x", 2)
	le := symbolic.Var("le")

	tests := []struct {
		name   string
		env    map[string]float64
		minVal float64
		maxVal float64
	}{
		{"far", map[string]float64{"x_0": 100, "x_1": 0, "le": 0}, d.BetaDistant, d.BetaClose},
		{"at_goal", map[string]float64{"x_0": 0, "x_1": 0, "le": 0}, d.BetaDistant, d.BetaClose},
		{"high_energy", map[string]float64{"x_0": 1, "x_1": 1, "le": 1e3}, d.BetaDistant, d.BetaClose},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := eval(t, d.Coefficient(x, le), tt.env)
			if b < tt.minVal-1e-12 || b > tt.maxVal+1e-12 {
				t.Errorf("coefficient %v outside [%v, %v]", b, tt.minVal, tt.maxVal)
			}
		})
	}

	far := eval(t, d.Beta(x), map[string]float64{"x_0": 100, "x_1": 0})
	if math.Abs(far-d.BetaDistant) > 1e-9 {
		t.Errorf("beta far from goal = %v, want %v", far, d.BetaDistant)
	}
	mid := eval(t, d.Beta(x), map[string]float64{"x_0": d.RadiusShift, "x_1": 0})
	if want := 0.5*(d.BetaClose-d.BetaDistant) + d.BetaDistant; math.Abs(mid-want) > 1e-6 {
		t.Errorf("beta at shift radius = %v, want %v", mid, want)
	}
	if eta := eval(t, d.Eta(le), map[string]float64{"le": 0}); math.Abs(eta-0.5*(math.Tanh(-0.5)+1)) > 1e-12 {
		t.Errorf("eta at rest = %v", eta)
	}
}
