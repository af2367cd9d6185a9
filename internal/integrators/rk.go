package integrators

import "github.com/san-kum/fabrics/internal/dynamo"

// tableau is an explicit Runge-Kutta scheme. Stage i evaluates the system at
// t + c[i]*dt on x + dt*sum_j a[i][j]*k[j]. errW weights the embedded error
// estimate of adaptive pairs.
type tableau struct {
	c    []float64
	a    [][]float64
	b    []float64
	errW []float64
}

// stepper evaluates the stages of one tableau into reused buffers.
type stepper struct {
	tab tableau
	k   []dynamo.State
	tmp dynamo.State
}

func (s *stepper) stages(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) {
	n := len(x)
	if len(s.k) != len(s.tab.c) || len(s.tmp) != n {
		s.k = make([]dynamo.State, len(s.tab.c))
		for i := range s.k {
			s.k[i] = make(dynamo.State, n)
		}
		s.tmp = make(dynamo.State, n)
	}

	for i, ci := range s.tab.c {
		copy(s.tmp, x)
		for j, aij := range s.tab.a[i] {
			if aij == 0 {
				continue
			}
			for m := range s.tmp {
				s.tmp[m] += dt * aij * s.k[j][m]
			}
		}
		copy(s.k[i], dyn.Derive(s.tmp, u, t+ci*dt))
	}
}

// combine returns x + dt*sum_i w[i]*k[i].
func (s *stepper) combine(x dynamo.State, w []float64, dt float64) dynamo.State {
	out := x.Clone()
	for i, wi := range w {
		if wi == 0 {
			continue
		}
		for m := range out {
			out[m] += dt * wi * s.k[i][m]
		}
	}
	return out
}
