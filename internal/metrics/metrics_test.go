package metrics

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/san-kum/fabrics/internal/dynamo"
	"github.com/san-kum/fabrics/internal/kinematics"
	"github.com/san-kum/fabrics/internal/models"
	"github.com/san-kum/fabrics/internal/scene"
)

func pointLocator(t *testing.T) Locator {
	t.Helper()
	fk, err := kinematics.NewEvaluator(kinematics.NewPointMass(2))
	if err != nil {
		t.Fatalf("evaluator: %v", err)
	}
	return NewLocator(models.NewHolonomic("point_mass", 2), fk)
}

func state(x, y float64) dynamo.State { return dynamo.State{x, y, 0, 0} }

func TestGoalMetrics(t *testing.T) {
	loc := pointLocator(t)
	goal := r3.Vector{X: 1, Y: 1}

	dist := NewGoalDistance(loc, kinematics.EndEffector, goal)
	ttg := NewTimeToGoal(loc, kinematics.EndEffector, goal, 0.1)
	path := NewPathLength(loc, kinematics.EndEffector)

	trajectory := []dynamo.State{state(0, 0), state(0.6, 0.8), state(1, 0.95), state(1, 1)}
	for i, x := range trajectory {
		for _, m := range []dynamo.Metric{dist, ttg, path} {
			m.Observe(x, nil, float64(i))
		}
	}

	if dist.Value() != 0 {
		t.Errorf("expected final distance 0, got %v", dist.Value())
	}
	if ttg.Value() != 2 {
		t.Errorf("expected goal reached at t=2, got %v", ttg.Value())
	}
	want := 1 + math.Hypot(0.4, 0.15) + 0.05
	if math.Abs(path.Value()-want) > 1e-12 {
		t.Errorf("expected path length %v, got %v", want, path.Value())
	}

	ttg.Reset()
	if ttg.Value() != -1 {
		t.Errorf("expected -1 after reset, got %v", ttg.Value())
	}
	if !ttg.Done(state(1, 1), 0) || ttg.Done(state(0, 0), 0) {
		t.Error("Done disagrees with the threshold")
	}
}

func TestClearanceAndCollisions(t *testing.T) {
	loc := pointLocator(t)
	sc := &scene.Scene{
		Dim:       2,
		Obstacles: []scene.Obstacle{{Center: r3.Vector{X: 1}, Radius: 0.5}},
		BodyRadii: map[string]float64{kinematics.EndEffector: 0.1},
	}

	c := NewClearance(loc, sc)
	hits := NewCollisions(loc, sc)
	if c.Value() != 0 {
		t.Errorf("expected 0 before observing, got %v", c.Value())
	}

	for _, x := range []dynamo.State{state(-1, 0), state(0, 0), state(0.5, 0)} {
		c.Observe(x, nil, 0)
		hits.Observe(x, nil, 0)
	}

	if math.Abs(c.Value()-(-0.1)) > 1e-12 {
		t.Errorf("expected clearance -0.1, got %v", c.Value())
	}
	if hits.Value() != 1 {
		t.Errorf("expected 1 collision, got %v", hits.Value())
	}
}

func TestLimitCompliance(t *testing.T) {
	m := NewLimitCompliance([][2]float64{{-1, 1}, {-1, 1}})
	for _, x := range []dynamo.State{state(0, 0), state(1.5, 0), state(0, -2), state(1, -1)} {
		m.Observe(x, nil, 0)
	}
	if m.Value() != 0.5 {
		t.Errorf("expected compliance 0.5, got %v", m.Value())
	}
	m.Reset()
	if m.Value() != 1 {
		t.Errorf("expected 1 after reset, got %v", m.Value())
	}
}

type counter int

func (c *counter) Regularizations() int { return int(*c) }

func TestRegularizationRate(t *testing.T) {
	c := counter(3)
	m := NewRegularizationRate(&c)
	for i := 0; i < 4; i++ {
		m.Observe(nil, nil, 0)
	}
	c = 4
	if m.Value() != 0.25 {
		t.Errorf("expected rate 0.25, got %v", m.Value())
	}
}

func TestControlEffortAndEnergy(t *testing.T) {
	effort := NewControlEffort()
	if effort.Value() != 0 {
		t.Errorf("expected zero effort before observing, got %v", effort.Value())
	}
	effort.Observe(nil, dynamo.Control{1, -2}, 0)
	effort.Observe(nil, dynamo.Control{0, 1}, 0)
	if math.Abs(effort.Value()-math.Sqrt(3)) > 1e-12 {
		t.Errorf("expected rms effort sqrt(3), got %v", effort.Value())
	}
	if math.Abs(effort.Peak()-math.Sqrt(5)) > 1e-12 {
		t.Errorf("expected peak sqrt(5), got %v", effort.Peak())
	}

	robot := models.NewHolonomic("point_mass", 2)
	energy := NewEnergy(robot)
	if !math.IsNaN(energy.Value()) {
		t.Errorf("expected NaN before observing, got %v", energy.Value())
	}
	energy.Observe(dynamo.State{0, 0, 1, 0}, nil, 0)
	energy.Observe(dynamo.State{0, 0, 0, 0}, nil, 0)
	if energy.Value() != 0 || energy.Peak() != 0.5 {
		t.Errorf("expected final 0 and peak 0.5, got %v and %v", energy.Value(), energy.Peak())
	}

	energy.Reset()
	if !math.IsNaN(energy.Value()) || energy.Peak() != 0 {
		t.Error("reset must clear the energy")
	}
}
