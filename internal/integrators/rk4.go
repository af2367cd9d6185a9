package integrators

import "github.com/san-kum/fabrics/internal/dynamo"

var classicRK4 = tableau{
	c: []float64{0, 0.5, 0.5, 1},
	a: [][]float64{nil, {0.5}, {0, 0.5}, {0, 0, 1}},
	b: []float64{1.0 / 6, 1.0 / 3, 1.0 / 3, 1.0 / 6},
}

// RK4 is the classic fourth-order Runge-Kutta method. The zero value is
// ready to use.
type RK4 struct {
	stepper
}

func NewRK4() *RK4 {
	return &RK4{stepper{tab: classicRK4}}
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	if r.tab.c == nil {
		r.tab = classicRK4
	}
	r.stages(dyn, x, u, t, dt)
	return r.combine(x, r.tab.b, dt)
}
