package leaf

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/fabrics/internal/diffmap"
	"github.com/san-kum/fabrics/internal/lagrangian"
	"github.com/san-kum/fabrics/internal/symbolic"
)

func mustLeaf(t *testing.T) func(*Leaf, error) *Leaf {
	return func(l *Leaf, err error) *Leaf {
		t.Helper()
		if err != nil {
			t.Fatalf("build leaf: %v", err)
		}
		return l
	}
}

func taskEnv(l *Leaf, rng *rand.Rand) map[string]float64 {
	env := make(map[string]float64)
	for i := range l.X() {
		// keep barrier distances positive
		env[l.X()[i].Name()] = 0.1 + rng.Float64()
		env[l.Xdot()[i].Name()] = rng.Float64()*4 - 2
	}
	return env
}

func allLeaves(t *testing.T) []*Leaf {
	q := symbolic.Vars("q", 2)
	qdot := symbolic.Vars("qdot", 2)
	goal := symbolic.Vars("x_goal_0", 2)
	static, err := diffmap.New(q.Sub(goal), q, qdot)
	if err != nil {
		t.Fatal(err)
	}
	ref := diffmap.Reference{
		X:     symbolic.Vars("x_ref", 2),
		Xdot:  symbolic.Vars("xdot_ref", 2),
		Xddot: symbolic.Vars("xddot_ref", 2),
	}
	traj, err := NewTrajectory([][]float64{{0, 0}, {1, 0}, {1, 1}}, 2, 0.01, 1)
	if err != nil {
		t.Fatal(err)
	}
	obstacle := Obstacle{Center: symbolic.Vars("x_obst_0", 2), Radius: symbolic.Var("radius_obst_0")}
	tm := symbolic.Var("t")
	circle := symbolic.Vector{symbolic.Cos(tm), symbolic.Sin(tm)}
	w := symbolic.Var("weight_goal_0")

	return []*Leaf{
		mustLeaf(t)(NewAttractor("attractor", static, w, DefaultAttractor())),
		mustLeaf(t)(NewQuadraticAttractor("quadratic", static, w, 2)),
		mustLeaf(t)(NewExponentialAttractor("exponential", static, w, 0.2, lagrangian.DefaultDamper())),
		mustLeaf(t)(NewRotationAttractor("rotation", q[0], q[1], q, qdot, 0.5, nil, DefaultAttractor())),
		mustLeaf(t)(NewTimeVariantAttractor("moving", q, q, qdot, circle, tm, w, DefaultAttractor())),
		mustLeaf(t)(NewDynamicAttractor("dynamic", q, q, qdot, ref, w, 5)),
		mustLeaf(t)(NewSplineAttractor("spline", q, q, qdot, ref, traj, w, DefaultAttractor())),
		mustLeaf(t)(NewCollisionAvoidance("obstacle", q, q, qdot, obstacle, symbolic.Var("radius_body_ee"), DefaultCollision())),
		mustLeaf(t)(NewSelfCollisionAvoidance("self", q, symbolic.ZeroVector(2), q, qdot, symbolic.Const(0.1), symbolic.Const(0.1), DefaultCollision())),
		mustLeaf(t)(NewLimitAvoidance("limit", q, qdot, 1, -2, false, DefaultLimit())),
		mustLeaf(t)(NewRedundancySolver("redundancy", q, qdot, []float64{0, 0.5}, 0.2)),
		mustLeaf(t)(NewBaseInertia("base", q, qdot, 0.2)),
	}
}

func TestMassIsSymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, l := range allLeaves(t) {
		t.Run(l.Name(), func(t *testing.T) {
			sys, err := l.Derive()
			if err != nil {
				t.Fatalf("derive: %v", err)
			}
			n := sys.Energy.M.Rows()
			for s := 0; s < 20; s++ {
				env := taskEnv(l, rng)
				for i := 0; i < n; i++ {
					for j := i + 1; j < n; j++ {
						a, err := symbolic.Eval(sys.Energy.M[i][j], env)
						if err != nil {
							t.Fatal(err)
						}
						b, _ := symbolic.Eval(sys.Energy.M[j][i], env)
						if math.Abs(a-b) > 1e-10 {
							t.Errorf("M[%d][%d]=%v, M[%d][%d]=%v", i, j, a, j, i, b)
						}
					}
				}
			}
		})
	}
}

func TestKinds(t *testing.T) {
	want := map[string]Kind{
		"attractor":   Forcing,
		"exponential": Damped,
		"dynamic":     Dynamic,
		"spline":      Spline,
		"obstacle":    Geometry,
		"redundancy":  Geometry,
		"base":        Forcing,
	}
	for _, l := range allLeaves(t) {
		k, ok := want[l.Name()]
		if !ok {
			continue
		}
		if l.Kind() != k {
			t.Errorf("%s: kind %s, want %s", l.Name(), l.Kind(), k)
		}
	}
}

func TestValidateRejectsBothPayloads(t *testing.T) {
	q := symbolic.Vars("q", 1)
	m, err := diffmap.New(q, q, symbolic.Vars("qdot", 1))
	if err != nil {
		t.Fatal(err)
	}
	l := newLeaf("broken", Forcing, m)
	l.energy = symbolic.One()
	l.potential = symbolic.One()
	l.geometry = symbolic.Vector{symbolic.One()}
	if err := l.Validate(); !errors.Is(err, ErrInvalidLeaf) {
		t.Errorf("expected ErrInvalidLeaf, got %v", err)
	}

	l.geometry = nil
	l.potential = nil
	if err := l.Validate(); !errors.Is(err, ErrInvalidLeaf) {
		t.Errorf("expected ErrInvalidLeaf without payload, got %v", err)
	}

	g := newLeaf("geometry", Geometry, m)
	g.energy = symbolic.One()
	g.potential = symbolic.One()
	if err := g.Validate(); !errors.Is(err, ErrInvalidLeaf) {
		t.Errorf("geometry leaf with potential should be invalid, got %v", err)
	}
}

func TestCollisionGeometryOnlyWhileApproaching(t *testing.T) {
	q := symbolic.Vars("q", 2)
	obstacle := Obstacle{Center: symbolic.ConstVector(1, 0), Radius: symbolic.Const(0.2)}
	l := mustLeaf(t)(NewCollisionAvoidance("obst", q, q, symbolic.Vars("qdot", 2), obstacle, symbolic.Const(0.1), DefaultCollision()))

	h := l.Geometry()[0]
	x, xd := l.X()[0].Name(), l.Xdot()[0].Name()

	approach, _ := symbolic.Eval(h, map[string]float64{x: 0.5, xd: -1})
	if approach >= 0 {
		t.Errorf("approaching geometry should push away (h < 0), got %v", approach)
	}
	leave, _ := symbolic.Eval(h, map[string]float64{x: 0.5, xd: 1})
	if leave != 0 {
		t.Errorf("geometry should vanish while moving away, got %v", leave)
	}

	energy, _ := symbolic.Eval(l.Energy(), map[string]float64{x: 0.5, xd: 1})
	if energy != 0 {
		t.Errorf("finsler energy should vanish while moving away, got %v", energy)
	}
}

func TestLimitGeometryUnswitched(t *testing.T) {
	q := symbolic.Vars("q", 1)
	l := mustLeaf(t)(NewLimitAvoidance("upper", q, symbolic.Vars("qdot", 1), 0, 1.5, true, DefaultLimit()))
	h := l.Geometry()[0]
	x, xd := l.X()[0].Name(), l.Xdot()[0].Name()

	for _, v := range []float64{-1, 1} {
		got, _ := symbolic.Eval(h, map[string]float64{x: 0.5, xd: v})
		if want := -0.1 / 0.5; math.Abs(got-want) > 1e-12 {
			t.Errorf("xdot=%v: h=%v, want %v", v, got, want)
		}
	}

	phi, _ := symbolic.Eval(l.Map().Phi()[0], map[string]float64{"q_0": 1})
	if math.Abs(phi-0.5) > 1e-12 {
		t.Errorf("upper limit distance = %v, want 0.5", phi)
	}
}

func TestAttractorPullsTowardGoal(t *testing.T) {
	q := symbolic.Vars("q", 2)
	m, err := diffmap.New(q, q, symbolic.Vars("qdot", 2))
	if err != nil {
		t.Fatal(err)
	}
	l := mustLeaf(t)(NewAttractor("goal", m, nil, DefaultAttractor()))
	grad, err := symbolic.Gradient(l.Potential(), l.X())
	if err != nil {
		t.Fatal(err)
	}
	env := map[string]float64{l.X()[0].Name(): 0.3, l.X()[1].Name(): -0.4}
	g0, _ := symbolic.Eval(grad[0], env)
	g1, _ := symbolic.Eval(grad[1], env)

	// gradient of k*softplus-distance is k*tanh(a*r)*x/r
	r := 0.5
	scale := 5 * math.Tanh(10*r) / r
	if math.Abs(g0-scale*0.3) > 1e-9 || math.Abs(g1+scale*0.4) > 1e-9 {
		t.Errorf("gradient (%v, %v), want (%v, %v)", g0, g1, scale*0.3, -scale*0.4)
	}
}

func TestFactoryErrors(t *testing.T) {
	q := symbolic.Vars("q", 2)
	qdot := symbolic.Vars("qdot", 2)

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"bad_attractor", func() error {
			m, _ := diffmap.New(q, q, qdot)
			_, err := NewAttractor("a", m, nil, AttractorParams{K: -1, APsi: 1, MassMin: 1, MassMax: 2})
			return err
		}(), ErrInvalidParam},
		{"obstacle_dim", func() error {
			_, err := NewCollisionAvoidance("o", q, q, qdot, Obstacle{Center: symbolic.Vars("c", 3), Radius: symbolic.One()}, symbolic.One(), DefaultCollision())
			return err
		}(), ErrDimension},
		{"limit_index", func() error {
			_, err := NewLimitAvoidance("l", q, qdot, 5, 0, false, DefaultLimit())
			return err
		}(), ErrDimension},
		{"redundancy_pose", func() error {
			_, err := NewRedundancySolver("r", q, qdot, []float64{0}, 0.2)
			return err
		}(), ErrDimension},
		{"few_waypoints", func() error {
			_, err := NewTrajectory([][]float64{{0, 0}}, 1, 0.1, 1)
			return err
		}(), ErrInvalidParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, tt.err)
			}
		})
	}
}

func TestTrajectorySampling(t *testing.T) {
	waypoints := [][]float64{{0, 0}, {1, 0.5}, {2, 0}}
	tr, err := NewTrajectory(waypoints, 4, 0.01, 1)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Dim() != 2 {
		t.Fatalf("expected dim 2, got %d", tr.Dim())
	}

	pos, vel, _ := tr.At(0)
	if pos[0] != 0 || pos[1] != 0 {
		t.Errorf("start %v, want first waypoint", pos)
	}
	if vel[0] <= 0 {
		t.Errorf("x velocity at start should be positive, got %v", vel[0])
	}

	mid, _, _ := tr.At(2)
	if math.Abs(mid[0]-1) > 1e-6 || math.Abs(mid[1]-0.5) > 1e-6 {
		t.Errorf("midpoint %v, want middle waypoint", mid)
	}

	end, vel, acc := tr.At(10)
	if math.Abs(end[0]-2) > 1e-9 || math.Abs(end[1]) > 1e-9 {
		t.Errorf("end %v, want last waypoint", end)
	}
	for i := range vel {
		if vel[i] != 0 || acc[i] != 0 {
			t.Errorf("trajectory past horizon should be at rest, got vel %v acc %v", vel, acc)
		}
	}
}
