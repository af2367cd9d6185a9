package kinematics

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"
)

func near(a, b r3.Vector) bool { return a.Sub(b).Norm() < 1e-12 }

func TestPlanarArmPositions(t *testing.T) {
	arm, err := NewPlanarArm(1, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	ev, err := NewEvaluator(arm)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		q    []float64
		link string
		want r3.Vector
	}{
		{"base", []float64{0.3, 0.2}, "link0", r3.Vector{}},
		{"elbow_straight", []float64{0, 0}, "link1", r3.Vector{X: 1}},
		{"tip_straight", []float64{0, 0}, EndEffector, r3.Vector{X: 1.5}},
		{"tip_up", []float64{math.Pi / 2, 0}, EndEffector, r3.Vector{Y: 1.5}},
		{"tip_folded", []float64{0, math.Pi / 2}, EndEffector, r3.Vector{X: 1, Y: 0.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ev.Position(tt.q, tt.link)
			if err != nil {
				t.Fatal(err)
			}
			if !near(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	all, err := ev.Positions([]float64{0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || !near(all[2], r3.Vector{X: 1.5}) {
		t.Errorf("positions %v", all)
	}
}

func TestUnknownLink(t *testing.T) {
	arm, _ := NewPlanarArm(1, 1)
	q := make([]float64, 2)
	ev, err := NewEvaluator(arm)
	if err != nil {
		t.Fatal(err)
	}
	for _, link := range []string{"link2", "linkx", "hand", "0"} {
		if _, err := ev.Position(q, link); !errors.Is(err, ErrUnknownLink) {
			t.Errorf("%q: expected ErrUnknownLink, got %v", link, err)
		}
	}
}

func TestDiffDriveFront(t *testing.T) {
	d := NewDiffDrive(0.2)
	ev, err := NewEvaluator(d)
	if err != nil {
		t.Fatal(err)
	}
	p, err := ev.Position([]float64{1, 2, math.Pi / 2}, LinkFront)
	if err != nil {
		t.Fatal(err)
	}
	if !near(p, r3.Vector{X: 1, Y: 2.2}) {
		t.Errorf("front %v", p)
	}
	if d.ActuatedDim() != 2 {
		t.Errorf("actuated dim %d", d.ActuatedDim())
	}
}

func TestPointMassDimension(t *testing.T) {
	p := NewPointMass(2)
	ev, err := NewEvaluator(p)
	if err != nil {
		t.Fatal(err)
	}
	got, err := ev.Position([]float64{0.5, -1}, EndEffector)
	if err != nil {
		t.Fatal(err)
	}
	if !near(got, r3.Vector{X: 0.5, Y: -1}) {
		t.Errorf("got %v", got)
	}
	if _, err := ev.Position([]float64{1}, EndEffector); err == nil {
		t.Error("expected a size error for a short configuration")
	}
}
