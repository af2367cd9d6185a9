package models

import (
	"math"
	"testing"

	"github.com/san-kum/fabrics/internal/dynamo"
)

func TestHolonomicDimensions(t *testing.T) {
	h := NewHolonomic("arm", 3)

	if h.StateDim() != 6 {
		t.Errorf("expected state dim 6, got %d", h.StateDim())
	}
	if h.ControlDim() != 3 || h.PositionDim() != 3 {
		t.Errorf("expected control and position dim 3, got %d and %d", h.ControlDim(), h.PositionDim())
	}
}

func TestHolonomicDerive(t *testing.T) {
	tests := []struct {
		name     string
		friction float64
		x        dynamo.State
		u        dynamo.Control
		want     dynamo.State
	}{
		{"at rest", 0, dynamo.State{1, 2, 0, 0}, dynamo.Control{0, 0}, dynamo.State{0, 0, 0, 0}},
		{"commanded", 0, dynamo.State{0, 0, 1, -1}, dynamo.Control{2, 3}, dynamo.State{1, -1, 2, 3}},
		{"friction", 0.5, dynamo.State{0, 0, 2, 0}, dynamo.Control{0, 1}, dynamo.State{2, 0, -1, 1}},
		{"short command", 0, dynamo.State{0, 0, 0, 0}, dynamo.Control{1}, dynamo.State{0, 0, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHolonomic("point", 2)
			h.Friction = tt.friction
			got := h.Derive(tt.x, tt.u, 0)
			for i := range tt.want {
				if math.Abs(got[i]-tt.want[i]) > 1e-12 {
					t.Errorf("component %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestHolonomicObserve(t *testing.T) {
	h := NewHolonomic("point", 2)
	x := h.Initial([]float64{0.3, -0.4})
	x[3] = 1

	params := map[string][]float64{}
	h.Observe(x, params)

	if q := params[InputQ]; len(q) != 2 || q[0] != 0.3 || q[1] != -0.4 {
		t.Errorf("unexpected q %v", q)
	}
	if qdot := params[InputQdot]; len(qdot) != 2 || qdot[1] != 1 {
		t.Errorf("unexpected qdot %v", qdot)
	}
	if e := h.Energy(x); e != 0.5 {
		t.Errorf("expected energy 0.5, got %v", e)
	}
}

func TestDiffDriveDerive(t *testing.T) {
	d := NewDiffDrive()
	x := dynamo.State{0, 0, math.Pi / 2, 2, 0.5}

	dx := d.Derive(x, dynamo.Control{1, -1}, 0)

	want := dynamo.State{0, 2, 0.5, 1, -1}
	for i := range want {
		if math.Abs(dx[i]-want[i]) > 1e-12 {
			t.Errorf("component %d = %v, want %v", i, dx[i], want[i])
		}
	}
}

func TestDiffDriveSpeedLimit(t *testing.T) {
	d := NewDiffDrive()
	d.MaxSpeed = 1

	if dx := d.Derive(dynamo.State{0, 0, 0, 1, 0}, dynamo.Control{1, 0}, 0); dx[3] != 0 {
		t.Errorf("expected no further acceleration at max speed, got %v", dx[3])
	}
	if dx := d.Derive(dynamo.State{0, 0, 0, 1, 0}, dynamo.Control{-1, 0}, 0); dx[3] != -1 {
		t.Errorf("expected braking to pass, got %v", dx[3])
	}
}

func TestDiffDriveObserve(t *testing.T) {
	d := NewDiffDrive()
	x := dynamo.State{1, 2, math.Pi, 0.5, 0.1}

	params := map[string][]float64{}
	d.Observe(x, params)

	qdot := params[InputQdot]
	if math.Abs(qdot[0]+0.5) > 1e-12 || math.Abs(qdot[1]) > 1e-12 || qdot[2] != 0.1 {
		t.Errorf("unexpected qdot %v", qdot)
	}
	if qudot := params[InputQudot]; qudot[0] != 0.5 || qudot[1] != 0.1 {
		t.Errorf("unexpected qudot %v", qudot)
	}
	if q := d.Position(x); len(q) != 3 || q[2] != math.Pi {
		t.Errorf("unexpected pose %v", q)
	}
}
