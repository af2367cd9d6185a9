package control

import (
	"context"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/san-kum/fabrics/internal/dynamo"
	"github.com/san-kum/fabrics/internal/integrators"
	"github.com/san-kum/fabrics/internal/kinematics"
	"github.com/san-kum/fabrics/internal/models"
	"github.com/san-kum/fabrics/internal/planner"
	"github.com/san-kum/fabrics/internal/scene"
)

func reachScene(obstacles ...scene.Obstacle) *scene.Scene {
	return &scene.Scene{
		Dim:       2,
		Obstacles: obstacles,
		BodyRadii: map[string]float64{kinematics.EndEffector: 0.05},
		Goal: planner.Goal{SubGoals: []planner.SubGoal{{
			Weight:          1,
			Primary:         true,
			ChildLink:       kinematics.EndEffector,
			DesiredPosition: []float64{1, 1},
		}}},
	}
}

func readyPlanner(t *testing.T, sc *scene.Scene) *planner.Planner {
	t.Helper()
	cfg := planner.DefaultConfig()
	cfg.Damper.BetaClose = 20
	p, err := planner.New(2, kinematics.NewPointMass(2), planner.WithConfig(cfg))
	if err != nil {
		t.Fatalf("new planner: %v", err)
	}
	if err := p.SetComponents(sc.Components(nil)); err != nil {
		t.Fatalf("set components: %v", err)
	}
	if err := p.Concretize(); err != nil {
		t.Fatalf("concretize: %v", err)
	}
	return p
}

type clearance struct {
	sc  *scene.Scene
	min float64
}

func (c *clearance) OnStep(x dynamo.State, u dynamo.Control, t float64) {
	p := map[string]r3.Vector{kinematics.EndEffector: {X: x[0], Y: x[1]}}
	c.min = math.Min(c.min, c.sc.Clearance(t, p))
}

func TestFabricAvoidsObstacleOnTheWay(t *testing.T) {
	sc := reachScene(scene.Obstacle{Center: r3.Vector{X: 0.5, Y: 0.55}, Radius: 0.1})
	robot := models.NewHolonomic("point_mass", 2)
	ctrl := NewFabric(readyPlanner(t, sc), sc, robot, nil)

	sim := dynamo.New(robot, integrators.NewVerlet(), ctrl)
	obs := &clearance{sc: sc, min: math.Inf(1)}
	sim.AddObserver(obs)

	result, err := sim.Run(context.Background(), robot.Initial([]float64{0, 0}), dynamo.Config{Dt: 0.01, Duration: 40})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.ControlFailures != 0 {
		t.Fatalf("planner failed %d times: %v", result.ControlFailures, result.Errors)
	}

	final := result.Final()
	if d := math.Hypot(final[0]-1, final[1]-1); d > 0.05 {
		t.Errorf("expected to reach the goal, %.4f away", d)
	}
	if obs.min < 0.2 {
		t.Errorf("clearance dropped to %.4f", obs.min)
	}
}

type failing struct{ calls int }

func (f *failing) ComputeAction(params map[string][]float64) ([]float64, error) {
	f.calls++
	if f.calls == 1 {
		return nil, planner.ErrMissingParameter
	}
	return []float64{1, 2}, nil
}

func (f *failing) ActionDim() int  { return 2 }
func (f *failing) NeedsTime() bool { return true }

func TestFabricZeroCommandOnFailure(t *testing.T) {
	sc := reachScene()
	ctrl := NewFabric(&failing{}, sc, models.NewHolonomic("point_mass", 2), nil)

	u := ctrl.Compute(dynamo.State{0, 0, 0, 0}, 0)
	if u[0] != 0 || u[1] != 0 {
		t.Errorf("expected zero command, got %v", u)
	}
	if !errors.Is(ctrl.Err(), planner.ErrMissingParameter) {
		t.Errorf("expected the planner error, got %v", ctrl.Err())
	}

	u = ctrl.Compute(dynamo.State{0, 0, 0, 0}, 0.01)
	if u[0] != 1 || u[1] != 2 || ctrl.Err() != nil {
		t.Errorf("expected recovery, got %v (%v)", u, ctrl.Err())
	}
	if ctrl.Failures() != 1 {
		t.Errorf("expected one failure, got %d", ctrl.Failures())
	}
	if got := ctrl.params["t"]; len(got) != 1 || got[0] != 0.01 {
		t.Errorf("expected t=0.01 in params, got %v", got)
	}
}

func TestFabricTuning(t *testing.T) {
	sc := reachScene()
	ctrl := NewFabric(&failing{}, sc, models.NewHolonomic("point_mass", 2), nil)

	if got := ctrl.GetParams()["weight_goal_0"]; got != 1 {
		t.Errorf("expected weight 1, got %v", got)
	}
	if err := ctrl.SetParam("weight_goal_0", 3); err != nil {
		t.Fatalf("set weight: %v", err)
	}
	if sc.Goal.SubGoals[0].Weight != 3 {
		t.Errorf("weight not applied to the scene")
	}

	tests := []struct {
		name  string
		value float64
	}{
		{"weight_goal_1", 1},
		{"weight_goal_x", 1},
		{"gain", 1},
	}
	for _, tt := range tests {
		if err := ctrl.SetParam(tt.name, tt.value); !errors.Is(err, ErrUnknownParam) {
			t.Errorf("%s: expected ErrUnknownParam, got %v", tt.name, err)
		}
	}
	if err := ctrl.SetParam("weight_goal_0", -1); err == nil {
		t.Error("expected negative weight to be rejected")
	}
}

func TestPDConverges(t *testing.T) {
	robot := models.NewHolonomic("point_mass", 2)
	pd := NewPD(4, 4, []float64{1, -1})

	sim := dynamo.New(robot, integrators.NewVerlet(), pd)
	result, err := sim.Run(context.Background(), robot.Initial([]float64{0, 0}), dynamo.Config{Dt: 0.01, Duration: 10})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	final := result.Final()
	if math.Abs(final[0]-1) > 1e-3 || math.Abs(final[1]+1) > 1e-3 {
		t.Errorf("expected to settle at target, got %v", final[:2])
	}
	if err := pd.SetParam("Ki", 1); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("expected ErrUnknownParam, got %v", err)
	}
}

func TestNone(t *testing.T) {
	u := None(3).Compute(dynamo.State{1, 2, 3}, 0)
	if len(u) != 3 || u[0] != 0 {
		t.Errorf("expected a zero command of length 3, got %v", u)
	}
}
