package integrators

import (
	"math"

	"github.com/san-kum/fabrics/internal/dynamo"
)

// dormandPrince is the 5(4) pair. The seventh stage reuses the new state, so
// the error estimate costs no extra step.
var dormandPrince = tableau{
	c: []float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1},
	a: [][]float64{
		nil,
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	},
	b: []float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0},
	errW: []float64{
		35.0/384 - 5179.0/57600,
		0,
		500.0/1113 - 7571.0/16695,
		125.0/192 - 393.0/640,
		-2187.0/6784 + 92097.0/339200,
		11.0/84 - 187.0/2100,
		-1.0 / 40,
	},
}

// RK45 is the Dormand-Prince 5(4) pair with step size control.
type RK45 struct {
	stepper
	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		stepper:  stepper{tab: dormandPrince},
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

// Step takes one fifth-order step of size dt regardless of the error estimate.
func (r *RK45) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	newX, _, _ := r.StepAdaptive(dyn, x, u, t, dt, 1e-6)
	return newX
}

// StepAdaptive returns the new state and the suggested next step. It
// returns dynamo.ErrStepRejected when the error estimate exceeds tol; the
// caller retries with the suggested step.
func (r *RK45) StepAdaptive(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt, tol float64) (dynamo.State, float64, error) {
	r.stages(dyn, x, u, t, dt)
	xNew := r.combine(x, r.tab.b, dt)

	errMax := 0.0
	for m := range x {
		est := 0.0
		for i, w := range r.tab.errW {
			est += w * r.k[i][m]
		}
		scale := math.Abs(x[m]) + math.Abs(dt*r.k[0][m]) + 1e-10
		errMax = math.Max(errMax, math.Abs(dt*est)/scale)
	}

	ratio := errMax / tol
	switch {
	case ratio > 1:
		return xNew, dt * math.Max(r.minScale, r.safety*math.Pow(ratio, -0.25)), dynamo.ErrStepRejected
	case ratio > 0:
		return xNew, dt * math.Min(r.maxScale, r.safety*math.Pow(ratio, -0.2)), nil
	}
	return xNew, dt * r.maxScale, nil
}
